package server

import (
	"net/http"
	"strings"
)

const RouteFavicon = "/favicon.ico"

func (s *Server) initRoutes() {
	callbackPath := s.config.GetCallbackPath()
	if !strings.HasPrefix(callbackPath, "/") {
		callbackPath = "/" + callbackPath
	}

	s.RegisterRouteHandler("GET "+callbackPath, ChainMiddleware(s.OAuthCallbackHandler(), s.CallbackMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteFavicon, ChainMiddleware(http.NotFound, s.LoggingMiddleware))
}
