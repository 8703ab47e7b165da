// controllers/partner_controller.go
package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
	"github.com/clearline-hq/partnerhub_backend/repositories"
	"github.com/clearline-hq/partnerhub_backend/services"
	"github.com/clearline-hq/partnerhub_backend/utils"
)

const referralTreeCacheTTL = 5 * time.Minute

// treeCache is the slice of redis the controllers use for referral-tree
// snapshots. *redis.Client satisfies it; tests substitute a recorder.
type treeCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// PartnerController exposes the partner network: referral tree reads and
// post-signup recruitment linking.
type PartnerController struct {
	partners *repositories.PartnerRepository
	graph    *services.ReferralGraph
	cache    treeCache
}

func NewPartnerController(partners *repositories.PartnerRepository, graph *services.ReferralGraph, cache *redis.Client) *PartnerController {
	return &PartnerController{partners: partners, graph: graph, cache: cache}
}

// GetProfile returns the authenticated partner's own record.
func (pc *PartnerController) GetProfile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}

	partner, err := pc.partners.GetByID(ctx, partnerID)
	if errors.Is(err, services.ErrPartnerNotFound) {
		return partnerNotFound(c)
	}
	if err != nil {
		return internalError(c, "Failed to fetch partner", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Partner retrieved",
		Data:    partner,
	})
}

// GetReferralTree returns the subtree rooted at the authenticated partner,
// with derived recruit/downline/referral counts. Admins may pass ?rootId= to
// inspect any subtree. Trees are cached briefly in Redis.
func (pc *PartnerController) GetReferralTree(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rootID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}
	if utils.RoleFromContext(c) == models.RoleAdmin {
		if param := c.QueryParam("rootId"); param != "" {
			rootID, err = primitive.ObjectIDFromHex(param)
			if err != nil {
				return c.JSON(http.StatusBadRequest, models.Response{
					Status:  http.StatusBadRequest,
					Message: "Invalid rootId format",
				})
			}
		}
	}

	cacheKey := treeCacheKey(rootID)
	if pc.cache != nil {
		if cached, err := pc.cache.Get(ctx, cacheKey).Result(); err == nil {
			var tree models.ReferralTreeNode
			if json.Unmarshal([]byte(cached), &tree) == nil {
				return c.JSON(http.StatusOK, models.Response{
					Status:  http.StatusOK,
					Message: "Referral tree retrieved",
					Data:    &tree,
				})
			}
		}
	}

	tree, err := pc.graph.BuildTree(ctx, rootID)
	if err != nil {
		var cycle *services.CycleDetectedError
		if errors.As(err, &cycle) {
			log.Printf("ALERT: %v", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Referral network integrity error",
			})
		}
		if errors.Is(err, services.ErrPartnerNotFound) {
			return partnerNotFound(c)
		}
		return internalError(c, "Failed to build referral tree", err)
	}

	if pc.cache != nil {
		if payload, err := json.Marshal(tree); err == nil {
			if err := pc.cache.Set(ctx, cacheKey, payload, referralTreeCacheTTL).Err(); err != nil {
				log.Printf("Failed to cache referral tree: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral tree retrieved",
		Data:    tree,
	})
}

// Recruit links the authenticated partner under the sponsor whose referral
// code is supplied. The link is written once; a partner who already has a
// sponsor is rejected.
func (pc *PartnerController) Recruit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: err.Error(),
		})
	}

	var req models.RecruitRequest
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

	sponsor, err := pc.partners.GetByReferralCode(ctx, req.ReferralCode)
	if errors.Is(err, services.ErrPartnerNotFound) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Unknown referral code",
		})
	}
	if err != nil {
		return internalError(c, "Failed to look up referral code", err)
	}
	if sponsor.ID == partnerID {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "You cannot use your own referral code",
		})
	}

	// A partner must never end up sponsored by its own downline.
	cycle, err := pc.graph.WouldCreateCycle(ctx, partnerID, sponsor.ID)
	if err != nil {
		return internalError(c, "Failed to verify referral chain", err)
	}
	if cycle {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: services.ErrRecruitCycle.Error(),
		})
	}

	linked, err := pc.partners.SetParentOnce(ctx, partnerID, sponsor.ID)
	if err != nil {
		return internalError(c, "Failed to link sponsor", err)
	}
	if !linked {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: services.ErrParentAlreadySet.Error(),
		})
	}

	invalidateTreeCache(ctx, pc.cache, pc.graph, sponsor.ID)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Sponsor linked successfully",
	})
}

func treeCacheKey(partnerID primitive.ObjectID) string {
	return "referral-tree:" + partnerID.Hex()
}

// invalidateTreeCache drops the cached trees that include the given partner:
// its own and every ancestor's up the chain. Shared by every write path that
// changes tree membership or counts (recruitment, registration with a
// referral code, deal intake).
func invalidateTreeCache(ctx context.Context, cache treeCache, graph *services.ReferralGraph, partnerID primitive.ObjectID) {
	if cache == nil {
		return
	}
	keys := []string{treeCacheKey(partnerID)}
	ancestors, err := graph.AncestorsOf(ctx, partnerID, maxAncestorInvalidations)
	if err == nil {
		for _, id := range ancestors {
			keys = append(keys, treeCacheKey(id))
		}
	}
	if err := cache.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to invalidate referral tree cache: %v", err)
	}
}

const maxAncestorInvalidations = 16

func partnerNotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, models.Response{
		Status:  http.StatusNotFound,
		Message: "Partner not found",
	})
}
