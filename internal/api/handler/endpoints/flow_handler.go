package endpoints

import (
	"errors"
	"kbc/internal/api/handler/mapper"
	"kbc/internal/api/handler/middleware"
	"kbc/internal/api/handler/request"
	"kbc/internal/api/handler/response"
	"kbc/internal/api/service"
	"kbc/pkg"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	msgPromptRequired   = "Prompt is required and must be a non-empty string"
	msgAuthRequired     = "Authentication required: X-StorageApi-Token and X-Stack-Url headers must be provided"
	msgNotConfigured    = "AI service is not configured. Please contact support."
	msgCatalogFailed    = "Failed to fetch available components from Keboola API"
	msgGenerationFailed = "AI generation failed. Please try again."
	msgEmptyGeneration  = "AI returned empty response"
	msgParseFailed      = "Failed to parse AI response. Please try again or simplify your request."
	msgUnexpected       = "An unexpected error occurred"
)

type flowHandler struct {
	flowService *service.FlowGenerationService
	logger      zerolog.Logger
}

// FlowHandler registers the flow generation routes. limiter may be nil.
func FlowHandler(router gin.IRouter, flowService *service.FlowGenerationService, limiter *pkg.RedisRateLimiter, logger zerolog.Logger) {
	h := &flowHandler{flowService: flowService, logger: logger}

	routes := router.Group("/api/flows")
	routes.Use(middleware.CORS())
	{
		routes.POST("/generate", h.validateRequest, middleware.GenerationRateLimit(limiter, logger), h.generate)
		routes.OPTIONS("/generate", h.preflight)
	}
}

func (h *flowHandler) preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, X-StorageApi-Token, X-Stack-Url")
	c.Status(http.StatusOK)
}

const generateRequestKey = "generateFlowRequest"

// validateRequest answers 400 and 401 before the rate limiter counts the
// call, so rejected requests do not use up a token's quota.
func (h *flowHandler) validateRequest(c *gin.Context) {
	var req request.GenerateFlow
	if err := pkg.ParseAndValidate(c, &req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		h.logger.Debug().Err(err).Str("requestId", middleware.GetRequestID(c)).Msg("Invalid generate request body")
		c.AbortWithStatusJSON(http.StatusBadRequest, response.NewAPIError(msgPromptRequired, ""))
		return
	}
	if _, err := h.credentials(c)(); err != nil {
		status, body := errorResponse(err)
		c.AbortWithStatusJSON(status, body)
		return
	}
	c.Set(generateRequestKey, req)
	c.Next()
}

func (h *flowHandler) credentials(c *gin.Context) service.CredentialProvider {
	return service.StaticCredentials(
		c.GetHeader(middleware.StorageTokenHeader),
		c.GetHeader(middleware.StackURLHeader),
	)
}

func (h *flowHandler) generate(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	req := c.MustGet(generateRequestKey).(request.GenerateFlow)

	result, err := h.flowService.GenerateFlow(c.Request.Context(), service.GenerateFlowInput{
		Prompt:    req.Prompt,
		ProjectID: req.ProjectID,
		RequestID: requestID,
	}, h.credentials(c))
	if err != nil {
		status, body := errorResponse(err)
		if status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("requestId", requestID).Msg("Flow generation failed")
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, mapper.ToGenerateFlowResponse(result))
}

// errorResponse maps a pipeline error to its status and envelope. Details
// carry error messages only, never the generated text.
func errorResponse(err error) (int, response.APIError) {
	var (
		authErr      *service.AuthenticationRequiredError
		catalogErr   *pkg.CatalogFetchError
		serviceErr   *pkg.GenerationServiceError
		truncatedErr *pkg.TruncatedResponseError
		parseErr     *service.ResponseParseError
		structErr    *service.InvalidStructureError
	)

	switch {
	case errors.Is(err, service.ErrPromptRequired):
		return http.StatusBadRequest, response.NewAPIError(msgPromptRequired, "")
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, response.NewAPIError(msgAuthRequired, "")
	case errors.Is(err, service.ErrAIServiceNotConfigured):
		return http.StatusInternalServerError, response.NewAPIError(msgNotConfigured, "")
	case errors.As(err, &catalogErr):
		return http.StatusInternalServerError, response.NewAPIError(msgCatalogFailed, err.Error())
	case errors.Is(err, pkg.ErrEmptyGeneration):
		return http.StatusInternalServerError, response.NewAPIError(msgEmptyGeneration, "")
	case errors.As(err, &serviceErr):
		return http.StatusInternalServerError, response.NewAPIError(msgGenerationFailed, err.Error())
	case errors.As(err, &truncatedErr), errors.As(err, &parseErr), errors.As(err, &structErr), errors.Is(err, pkg.ErrUnrecoverable):
		return http.StatusInternalServerError, response.NewAPIError(msgParseFailed, err.Error())
	default:
		return http.StatusInternalServerError, response.NewAPIError(msgUnexpected, err.Error())
	}
}
