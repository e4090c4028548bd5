package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/baberlabs/chatr-sub000/internal/models"
	"github.com/baberlabs/chatr-sub000/internal/services"
)

type userRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListOthers(ctx context.Context, userID int64) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID int64, fullName string, avatarURL string) (*models.User, error)
	Delete(ctx context.Context, userID int64) error
}

type UserHandler struct {
	userRepo userRepository
	storage  services.StorageService
}

func NewUserHandler(userRepo userRepository, storage services.StorageService) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		storage:  storage,
	}
}

type updateProfileRequest struct {
	FullName    string `json:"full_name"`
	AvatarImage string `json:"avatar_image"`
}

// ListUsers returns everyone except the caller, for starting a new chat.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	users, err := h.userRepo.ListOthers(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list users"})
	}

	profiles := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Public())
	}

	return c.JSON(fiber.Map{"users": profiles})
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Full name is required"})
	}

	current, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch user"})
	}

	avatarURL := current.AvatarURL
	if req.AvatarImage != "" {
		if h.storage == nil {
			return c.Status(fiber.StatusServiceUnavailable).
				JSON(fiber.Map{"error": "Image upload unavailable"})
		}
		avatarURL, err = h.storage.UploadBase64(c.Context(), req.AvatarImage, "avatars")
		if err != nil {
			return c.Status(fiber.StatusBadGateway).
				JSON(fiber.Map{"error": "Failed to upload avatar"})
		}
	}

	user, err := h.userRepo.UpdateProfile(c.Context(), userID, req.FullName, avatarURL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"user": user})
}

func (h *UserHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.userRepo.Delete(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete account"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// actorID resolves the authenticated user id stored by the auth middleware.
func actorID(c *fiber.Ctx) (int64, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, errors.New("missing user id")
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}
