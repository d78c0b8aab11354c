package signup

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/akeren/waitlist-signup/config/router"
	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/constants"
	apperrors "github.com/akeren/waitlist-signup/pkg/errors"
	"github.com/akeren/waitlist-signup/pkg/factory"
	"github.com/akeren/waitlist-signup/pkg/ratelimit"
)

const exportContentType = "text/csv; charset=utf-8"

var registerValidatorsOnce sync.Once

// ControllerConfig sets the per-IP limits of the submit and export routes.
// Zero values fall back to the package defaults.
type ControllerConfig struct {
	Limiters factory.RateLimiterFactory
	Signup   factory.RateLimitConfig
	Export   factory.RateLimitConfig
}

func (c ControllerConfig) withDefaults() ControllerConfig {
	c.Signup.Scope = "signup"
	if c.Signup.Requests <= 0 {
		c.Signup.Requests = constants.DefaultSignupRateLimitRequests
	}
	if c.Signup.Window <= 0 {
		c.Signup.Window = constants.DefaultSignupRateLimitWindow()
	}
	c.Export.Scope = "export"
	if c.Export.Requests <= 0 {
		c.Export.Requests = constants.DefaultExportRateLimitRequests
	}
	if c.Export.Window <= 0 {
		c.Export.Window = constants.DefaultExportRateLimitWindow
	}
	return c
}

func NewSignupController(service SignupService, logger *log.Logger, cfg ControllerConfig) *router.RESTController {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return router.NewRESTController(
		"SignupController",
		"/api",
		func(rs *router.RouterService, c *router.RESTController) {
			registerBindingValidators(logger)

			limiters := cfg.Limiters
			if limiters == nil {
				limiters = rs.RateLimiterFactory()
			}

			rs.AddPostHandler(c, limiters.CreateRateLimiter(cfg.Signup), "signup", submitSignupHandler(service))
			rs.AddGetHandler(c, ratelimit.Unlimited{}, "signup-count", signupCountHandler(service))
			rs.AddGetHandler(c, limiters.CreateRateLimiter(cfg.Export), "download-signups", exportSignupsHandler(service))
		},
	)
}

func registerBindingValidators(logger *log.Logger) {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Error("Binding validator is not go-playground/validator; signup_role is unavailable")
			return
		}
		if err := RegisterValidators(v); err != nil {
			logger.Error("Failed to register signup validators", "error", err)
		}
	})
}

func submitSignupHandler(service SignupService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req SignupRequest
		if err := ctx.ShouldBind(&req); err != nil {
			logger.Error("Failed to bind request", "error", err)
			validationErrors := apperrors.FormatValidationErrors(err, &req)
			return submitErrorResult(service.RejectInvalid(ctx.Request.Context(), validationErrors))
		}

		response, err := service.Submit(ctx.Request.Context(), &req, ctx.ClientIP())
		if err != nil {
			return submitErrorResult(err)
		}

		return router.RawResult(http.StatusOK, response)
	}
}

func submitErrorResult(err error) *router.ServiceResult {
	body := SubmitResponse{
		Success: false,
		Message: apperrors.GetHumanReadableMessage(err),
	}
	if fields, ok := apperrors.GetDetails(err).([]apperrors.ValidationErrorResponse); ok && len(fields) > 0 {
		body.Errors = fields
	}
	return router.RawResult(apperrors.HTTPStatusCode(err), body)
}

func signupCountHandler(service SignupService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		return router.RawResult(http.StatusOK, service.Count(ctx.Request.Context()))
	}
}

func exportSignupsHandler(service SignupService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		content, err := service.Export(ctx.Request.Context(), exportCredential(ctx))
		if err != nil {
			return router.RawResult(
				apperrors.HTTPStatusCode(err),
				ExportErrorResponse{Error: apperrors.GetHumanReadableMessage(err)},
			)
		}

		return router.AttachmentResult(constants.DefaultExportFilename, exportContentType, content)
	}
}

// exportCredential reads ?key= first, then an Authorization bearer token.
func exportCredential(ctx *router.RequestContext) string {
	if key := ctx.Query("key"); key != "" {
		return key
	}
	header := ctx.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
