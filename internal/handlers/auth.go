package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetk3436/chatnest/internal/config"
	"github.com/ahmetk3436/chatnest/internal/middleware"
	"github.com/ahmetk3436/chatnest/internal/models"
	"github.com/ahmetk3436/chatnest/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const otpTTL = 10 * time.Minute

type AuthHandler struct {
	cfg    *config.Config
	db     *gorm.DB
	mailer services.OTPSender
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, mailer services.OTPSender) *AuthHandler {
	return &AuthHandler{cfg: cfg, db: db, mailer: mailer}
}

// SendOTP stores a short-lived one-time password and mails it out.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Email is required",
		})
	}

	code, err := randomOTP()
	if err != nil {
		slog.Error("Failed to generate OTP", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to generate OTP",
		})
	}

	otp := models.OTPCode{
		Email:     req.Email,
		Code:      code,
		ExpiresAt: time.Now().Add(otpTTL),
	}
	if err := h.db.Create(&otp).Error; err != nil {
		slog.Error("Failed to store OTP", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to generate OTP",
		})
	}

	if err := h.mailer.SendOTP(req.Email, code); err != nil {
		slog.Error("Failed to send OTP mail", "email", req.Email, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to send OTP",
		})
	}

	return c.JSON(fiber.Map{"message": "OTP sent successfully"})
}

// consumeOTP validates and deletes a pending code for the email.
func (h *AuthHandler) consumeOTP(email, code string) bool {
	var otp models.OTPCode
	err := h.db.Where("email = ? AND code = ? AND expires_at > ?", email, code, time.Now()).
		First(&otp).Error
	if err != nil {
		return false
	}
	h.db.Delete(&otp)
	return true
}

// Signup verifies the OTP, checks conflicts and creates the account.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req struct {
		BusinessName string `json:"business_name"`
		Email        string `json:"email"`
		Username     string `json:"username"`
		Password     string `json:"password"`
		OTP          string `json:"otp"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}
	if req.BusinessName == "" || req.Email == "" || req.Username == "" || req.Password == "" || req.OTP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "All fields are required",
		})
	}

	if !h.consumeOTP(req.Email, req.OTP) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid or expired OTP",
		})
	}

	var existing models.User
	err := h.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error
	if err == nil {
		msg := "Username already taken"
		if existing.Email == req.Email {
			msg = "Email already registered"
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   true,
			"message": msg,
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("Failed to check existing users", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create user",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create user",
		})
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		BusinessName: req.BusinessName,
		PasswordHash: string(hash),
	}
	if err := h.db.Create(&user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to create user",
		})
	}

	return h.respondWithTokens(c, &user)
}

// Login authenticates with username and password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Username and password are required",
		})
	}

	var user models.User
	if err := h.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid username or password",
		})
	}

	if user.PasswordHash == "" {
		// OTP-only account
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Please login via OTP",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid username or password",
		})
	}

	return h.respondWithTokens(c, &user)
}

// VerifyOTP logs in (or creates) an account from a valid OTP alone.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.OTP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Email and OTP are required",
		})
	}

	if !h.consumeOTP(req.Email, req.OTP) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid or expired OTP",
		})
	}

	var user models.User
	err := h.db.Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Username is unique, so reuse the email until the user picks one.
		user = models.User{Email: req.Email, Username: req.Email}
		if err := h.db.Create(&user).Error; err != nil {
			slog.Error("Failed to create user", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   true,
				"message": "Failed to create user",
			})
		}
	} else if err != nil {
		slog.Error("Failed to look up user", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to log in",
		})
	}

	return h.respondWithTokens(c, &user)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(uuid.UUID)

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "User not found",
		})
	}
	return c.JSON(user)
}

func (h *AuthHandler) respondWithTokens(c *fiber.Ctx, user *models.User) error {
	access, refresh, err := middleware.GenerateTokens(user.ID, user.Email, user.Username, h.cfg.JWTSecret)
	if err != nil {
		slog.Error("Failed to generate tokens", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to generate tokens",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}
