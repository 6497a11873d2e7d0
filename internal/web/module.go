package web

import (
	"net/http"

	"go.uber.org/fx"
)

func newHandler(s *Shell) http.Handler {
	return s.Handler()
}

// Module provides the UI shell handler, named "web" for the origin mux
var Module = fx.Module("web",
	fx.Provide(
		NewShell,
		fx.Annotate(
			newHandler,
			fx.ResultTags(`name:"web"`),
		),
	),
)
