package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"baghchal-server/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenLifetime = 30 * 24 * time.Hour

// AuthService issues and verifies HS256 access tokens and owns the
// register/login endpoints.
type AuthService struct {
	DB     *gorm.DB
	secret []byte
}

func NewAuthService(db *gorm.DB, secret string) *AuthService {
	return &AuthService{DB: db, secret: []byte(secret)}
}

// CreateToken signs an access token for the user. The subject claim carries
// the user id.
func (s *AuthService) CreateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"exp":      time.Now().Add(tokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken parses a token and returns the id of an existing user, or an
// error for anything invalid, expired, or pointing at a deleted account.
func (s *AuthService) VerifyToken(tokenStr string) (uint, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, errors.New("invalid token subject")
	}
	userID, err := parseUserID(sub)
	if err != nil {
		return 0, errors.New("invalid token subject")
	}

	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return 0, errors.New("user not found")
	}
	return user.ID, nil
}

// Register handles POST /auth/register.
func (s *AuthService) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "username and password required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to hash password"})
	}

	// Uniqueness is enforced by the index, not a racy pre-check: two
	// concurrent registrations both settle here.
	user := models.User{
		Username:       req.Username,
		HashedPassword: string(hashed),
		EloRating:      1200,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(400).JSON(fiber.Map{"error": "username already registered"})
		}
		log.Printf("[AUTH] DB error creating user %q: %v", req.Username, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create user"})
	}

	token, err := s.CreateToken(&user)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to issue token"})
	}
	return c.JSON(fiber.Map{"token": token, "userId": user.ID})
}

// Login handles POST /auth/login.
func (s *AuthService) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	var user models.User
	if err := s.DB.First(&user, "username = ?", req.Username).Error; err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "incorrect username or password"})
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		return c.Status(401).JSON(fiber.Map{"error": "incorrect username or password"})
	}

	token, err := s.CreateToken(&user)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to issue token"})
	}
	return c.JSON(fiber.Map{"token": token, "userId": user.ID})
}
