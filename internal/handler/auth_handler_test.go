package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/innotech/lms-api/internal/config"
	"github.com/innotech/lms-api/internal/dto"
	"github.com/innotech/lms-api/internal/handler"
	"github.com/innotech/lms-api/internal/middleware"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
	"github.com/innotech/lms-api/internal/router"
	"github.com/innotech/lms-api/internal/service"
)

const authTestSecret = "handler-test-secret"

func setupAuthApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	authService := service.NewAuthService(
		repository.NewUserRepository(db), validate, authTestSecret, time.Hour, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "lms-test"}, router.Dependencies{
		AuthHandler:   handler.NewAuthHandler(authService, logger),
		JWTMiddleware: middleware.JWTProtected(authTestSecret),
	})

	return app
}

func TestAuthRegisterLoginMe(t *testing.T) {
	app := setupAuthApp(t)

	registerBody, err := json.Marshal(dto.RegisterRequest{
		Email:     "jane@example.com",
		Password:  "longenough",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      "trainer",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(registerBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	loginBody, err := json.Marshal(dto.LoginRequest{Email: "jane@example.com", Password: "longenough"})
	require.NoError(t, err)

	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(loginBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var login struct {
		Success bool              `json:"success"`
		Data    dto.TokenResponse `json:"data"`
	}
	decodeResponse(t, resp, &login)
	require.True(t, login.Success)
	require.NotEmpty(t, login.Data.AccessToken)

	req = httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Data.AccessToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var me struct {
		Success bool             `json:"success"`
		Data    dto.UserResponse `json:"data"`
	}
	decodeResponse(t, resp, &me)
	require.Equal(t, "jane@example.com", me.Data.Email)
	require.Equal(t, models.RoleTrainer, me.Data.Role)
}

func TestAuthMeRequiresToken(t *testing.T) {
	app := setupAuthApp(t)

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthLoginRejectsBadPassword(t *testing.T) {
	app := setupAuthApp(t)

	registerBody, err := json.Marshal(dto.RegisterRequest{
		Email:     "sam@example.com",
		Password:  "longenough",
		FirstName: "Sam",
		LastName:  "Smith",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(registerBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	loginBody, err := json.Marshal(dto.LoginRequest{Email: "sam@example.com", Password: "wrong password"})
	require.NoError(t, err)

	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(loginBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
