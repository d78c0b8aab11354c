package signup

import (
	"github.com/akeren/waitlist-signup/config/router"
)

type SignupServiceFactory interface {
	CreateService() SignupService
	CreateController() *router.RESTController
}

type DefaultSignupServiceFactory struct {
	deps       Dependencies
	controller ControllerConfig
	service    SignupService
}

func NewSignupServiceFactory(deps Dependencies, controller ControllerConfig) SignupServiceFactory {
	return &DefaultSignupServiceFactory{
		deps:       deps,
		controller: controller,
	}
}

// CreateService builds the service once; the count cache, metrics and
// breakers are shared by every caller.
func (f *DefaultSignupServiceFactory) CreateService() SignupService {
	if f.service == nil {
		f.service = NewSignupService(f.deps)
	}
	return f.service
}

func (f *DefaultSignupServiceFactory) CreateController() *router.RESTController {
	return NewSignupController(f.CreateService(), f.deps.Logger, f.controller)
}
