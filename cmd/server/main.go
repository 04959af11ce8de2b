package main

import (
	"log/slog"
	"os"

	"kiwipay/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		slog.Error("kiwipay stopped", "err", err)
		os.Exit(1)
	}
}
