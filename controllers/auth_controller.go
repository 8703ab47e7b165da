// controllers/auth_controller.go
package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/clearline-hq/partnerhub_backend/middleware"
	"github.com/clearline-hq/partnerhub_backend/models"
	"github.com/clearline-hq/partnerhub_backend/repositories"
	"github.com/clearline-hq/partnerhub_backend/services"
	"github.com/clearline-hq/partnerhub_backend/utils"
)

// AuthController handles partner registration and partner/admin login.
type AuthController struct {
	db       *mongo.Database
	partners *repositories.PartnerRepository
	graph    *services.ReferralGraph
	cache    treeCache
}

func NewAuthController(db *mongo.Database, graph *services.ReferralGraph, cache *redis.Client) *AuthController {
	return &AuthController{
		db:       db,
		partners: repositories.NewPartnerRepository(db),
		graph:    graph,
		cache:    cache,
	}
}

// Register creates a new partner account. When a referral code is supplied
// the new partner is linked under its sponsor immediately; the link is
// permanent.
func (ac *AuthController) Register(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.RegisterPartnerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	var parentID *primitive.ObjectID
	if req.ReferralCode != "" {
		sponsor, err := ac.partners.GetByReferralCode(ctx, req.ReferralCode)
		if errors.Is(err, services.ErrPartnerNotFound) {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Unknown referral code",
			})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to look up referral code",
			})
		}
		parentID = &sponsor.ID
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process password",
		})
	}

	referralCode, err := utils.GeneratePartnerReferralCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate referral code",
		})
	}

	now := time.Now()
	partner := &models.Partner{
		ID:              primitive.NewObjectID(),
		Email:           req.Email,
		Password:        string(hashedPassword),
		FullName:        req.FullName,
		Business:        req.Business,
		ReferralCode:    referralCode,
		ParentPartnerID: parentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := ac.partners.Create(ctx, partner); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Email already registered",
			})
		}
		log.Printf("Failed to create partner: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create partner",
		})
	}

	// The new partner just appeared in its sponsor's subtree.
	if parentID != nil {
		invalidateTreeCache(ctx, ac.cache, ac.graph, *parentID)
	}

	token, _, err := middleware.GenerateJWT(partner.ID.Hex(), partner.Email, string(models.RolePartner))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Partner registered successfully",
		Data: models.LoginData{
			Token:    token,
			UserType: string(models.RolePartner),
			Partner:  partner,
		},
	})
}

// Login authenticates a partner or an admin against their collection.
func (ac *AuthController) Login(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	// Try partner login first, then admin.
	partner, err := ac.partners.GetByEmail(ctx, req.Email)
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(partner.Password), []byte(req.Password)) != nil {
			return unauthorized(c)
		}
		token, _, err := middleware.GenerateJWT(partner.ID.Hex(), partner.Email, string(models.RolePartner))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to generate token",
			})
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Login successful",
			Data: models.LoginData{
				Token:    token,
				UserType: string(models.RolePartner),
				Partner:  partner,
			},
		})
	}
	if !errors.Is(err, services.ErrPartnerNotFound) {
		log.Printf("Partner lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Login failed",
		})
	}

	var admin models.Admin
	err = ac.db.Collection("admins").FindOne(ctx, bson.M{"email": req.Email}).Decode(&admin)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return unauthorized(c)
	}
	if err != nil {
		log.Printf("Admin lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Login failed",
		})
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)) != nil {
		return unauthorized(c)
	}

	token, _, err := middleware.GenerateJWT(admin.ID.Hex(), admin.Email, string(models.RoleAdmin))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data: models.LoginData{
			Token:    token,
			UserType: string(models.RoleAdmin),
		},
	})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.Response{
		Status:  http.StatusUnauthorized,
		Message: "Invalid email or password",
	})
}
