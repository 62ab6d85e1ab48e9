package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/Cheese-Battleship/internal/lobby"
)

func main() {
	addr := strings.TrimSpace(os.Getenv("LOBBY_ADDR"))
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	if addr == "" {
		addr = "127.0.0.1:7000"
	}

	client := lobby.NewClient(addr, lobby.WithTimeout(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		log.Printf("/health error: %v", err)
		os.Exit(1)
	}
	log.Printf("/health ok: %s", client.BaseURL())

	hosts, err := client.ListHosts(ctx)
	if err != nil {
		log.Printf("/hosts error: %v", err)
		os.Exit(1)
	}
	if len(hosts) == 0 {
		log.Println("no open games")
		return
	}
	for _, h := range hosts {
		fmt.Printf("%s  %-20s %s  since %s\n", h.ID, h.Name, h.Addr, h.CreatedAt.Local().Format(time.Kitchen))
	}
}
