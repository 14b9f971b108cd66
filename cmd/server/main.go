package main

import (
	"log"
	"net/http"
	"os"

	"zhajinhua-lite/internal/auth"
	"zhajinhua-lite/internal/gateway"
	"zhajinhua-lite/internal/ledger"
	"zhajinhua-lite/internal/lobby"
)

func main() {
	authService := auth.NewManager()
	defer authService.Close()

	ledgerService, ledgerMode, err := ledger.NewServiceFromEnv(os.Getenv("LEDGER_MODE"))
	if err != nil {
		log.Fatalf("[Server] Failed to init ledger service: %v", err)
	}
	defer ledgerService.Close()

	// The gateway delivers room broadcasts, but rooms are created through
	// gateway commands, so the late bind is safe.
	var gw *gateway.Gateway
	lby := lobby.New(ledgerService, func(identity string, data []byte) {
		gw.BroadcastToIdentity(identity, data)
	})
	defer lby.Close()
	gw = gateway.New(authService, lby)

	authHTTP := auth.NewHTTPHandler(authService)
	ledgerHTTP := ledger.NewHTTPHandler(ledgerService)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	authHTTP.RegisterRoutes(mux)
	ledgerHTTP.RegisterRoutes(mux)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("[Server] Ledger mode: %s", ledgerMode)
	log.Printf("[Server] Starting WebSocket server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}
