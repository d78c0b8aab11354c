package router

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/akeren/waitlist-signup/pkg/ratelimit"
)

// NewRESTController groups handlers under mountPoint. prepare registers the
// handlers when the controller is mounted.
func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: path.Clean("/" + mountPoint),
		prepare:    prepare,
	}
}

func (controller *RESTController) fullPath(relativePath string) string {
	return path.Clean(controller.mountPoint + "/" + strings.Trim(relativePath, "/"))
}

func (routerService *RouterService) keyForPathAndMethod(path, method string) string {
	return method + "-" + path
}

// addHandler registers handler on the engine. A non-nil limiter replaces the
// global limiter for this route only. Registering the same method and path
// twice is a programming error and panics at startup.
func (routerService *RouterService) addHandler(
	controller *RESTController,
	method string,
	limiter ratelimit.RateLimiter,
	relativePath string,
	handler HandlerFunction,
	middlewares []MiddlewareFunc,
) {
	fullPath := controller.fullPath(relativePath)
	key := routerService.keyForPathAndMethod(fullPath, method)

	if other, found := routerService.handlerToControllerMap[key]; found {
		panic(fmt.Sprintf("%s %s is already registered by controller '%s'", method, fullPath, other.name))
	}
	routerService.handlerToControllerMap[key] = controller

	if limiter != nil {
		routerService.rateLimitOverrides[key] = limiter
	}

	controller.handlerCount++
	routerService.engine.Handle(method, fullPath, append(middlewares, createHandler(handler))...)
	routerService.logger.Debug("Handler registered", "method", method, "path", fullPath,
		"rate_limit_override", limiter != nil, "exempt", limiter != nil && ratelimit.IsUnlimited(limiter))
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(controller, http.MethodPost, limiter, path, handler, middlewares)
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(controller, http.MethodGet, limiter, path, handler, middlewares)
}

func createHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)
		if result == nil {
			GetLogger(c).Error("Handler returned no result", "route", c.FullPath())
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("Internal server error").ToJSON())
			return
		}
		writeResult(c, result)
	}
}

func writeResult(c *RequestContext, result *ServiceResult) {
	switch {
	case result.Attachment != nil:
		a := result.Attachment
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
		c.Data(result.StatusCode, contentType, a.Content)
	case result.Body != nil:
		c.JSON(result.StatusCode, result.Body)
	default:
		c.JSON(result.StatusCode, result.ToJSON())
	}
}
