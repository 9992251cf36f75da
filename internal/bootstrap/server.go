package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkrylov/tablebook/api"
	"github.com/mkrylov/tablebook/config"
	"github.com/mkrylov/tablebook/internal/service/reservation"
)

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, svc reservation.ReservationUseCase) error {
	engine := gin.Default()

	v1 := engine.Group("/api/v1")
	api.NewAvailabilityHandler(svc).Register(v1)
	api.NewReservationHandler(svc).Register(v1)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
