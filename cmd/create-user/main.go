package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/cettopper/exam-portal/internal/config"
	"github.com/cettopper/exam-portal/internal/database"
	"github.com/cettopper/exam-portal/internal/logger"
	"github.com/cettopper/exam-portal/internal/model"
	"github.com/cettopper/exam-portal/internal/repository"
	"github.com/cettopper/exam-portal/internal/service"
)

// Usage:
//
//	create-user              prompt for a new student or admin
//	create-user token <id>   issue a fresh token after a password check
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg)

	reader := bufio.NewReader(os.Stdin)

	if len(os.Args) == 3 && os.Args[1] == "token" {
		reissueToken(ctx, userRepo, authService, os.Args[2])
		return
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	fmt.Println("=== Create New User ===")

	name := prompt(reader, "Enter Name: ")
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	email := prompt(reader, "Enter Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	password, ok := readPassword()
	if !ok {
		return
	}
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	role := model.Role(strings.ToLower(prompt(reader, "Enter Role [student/admin] (default student): ")))
	if role == "" {
		role = model.RoleStudent
	}
	if role != model.RoleStudent && role != model.RoleAdmin {
		fmt.Println("Error: Role must be student or admin")
		return
	}

	var school, class string
	if role == model.RoleStudent {
		school = prompt(reader, "Enter School (optional): ")
		class = prompt(reader, "Enter Class (optional): ")
	}

	// ─── Logic ─────────────────────────────────────────────────────────

	hash, err := authService.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		SchoolName:   school,
		ClassName:    class,
	}

	if err := userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			fmt.Printf("Error: a user with email %s already exists\n", email)
			return
		}
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	token, err := authService.GenerateToken(user.ID, user.Role)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %s\n", user.Role, user.Name, user.Email, user.ID)
	fmt.Printf("Token (valid %s):\n%s\n", cfg.JWTExpiry, token)
}

func reissueToken(ctx context.Context, users *repository.UserRepository, auth *service.AuthService, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		fmt.Println("Error: invalid user id")
		return
	}

	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			fmt.Println("Error: user not found")
			return
		}
		fmt.Printf("Error: %v\n", err)
		return
	}

	password, ok := readPassword()
	if !ok {
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		fmt.Println("Error: wrong password")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(token)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}

func readPassword() (string, bool) {
	fmt.Print("Enter Password: ")
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Newline after password input
	if err != nil {
		fmt.Println("Error reading password")
		return "", false
	}
	return string(b), true
}
