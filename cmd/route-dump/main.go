package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"nithronos/secheaders/internal/config"
	"nithronos/secheaders/internal/observability"
	"nithronos/secheaders/internal/server"
	"nithronos/secheaders/pkg/secheaders"
)

func main() {
	cfg := config.Defaults()
	reg := prom.NewRegistry()
	deps := server.Deps{
		Service:  secheaders.NewService(nil, zerolog.Nop()),
		Metrics:  observability.New(reg),
		Gatherer: reg,
	}
	r := server.NewRouter(cfg, zerolog.Nop(), deps).(*chi.Mux)
	var routes []map[string]string
	_ = chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, map[string]string{"method": method, "path": route})
		return nil
	})
	b, _ := json.Marshal(routes)
	fmt.Println(string(b))
}
