// chirserver wraps internal/chirserver.Handler in a glsp server process:
// commonlog-configured stdio-by-default startup, plus an optional
// websocket transport for browser-hosted tooling and a tiny liveness
// ping endpoint built directly on gorilla/websocket.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"chir/internal/chirserver"
)

const serverName = "chirserver"

func main() {
	transport := flag.String("transport", "stdio", `"stdio" or "ws"`)
	wsAddr := flag.String("addr", ":7777", "address to listen on when -transport=ws")
	healthAddr := flag.String("health", "", "if set, serve a websocket liveness ping on this address")
	debug := flag.Bool("debug", false, "enable glsp's internal debug logging")
	flag.Parse()

	commonlog.Configure(1, nil)

	handler := chirserver.NewHandler()
	protocolHandler := protocol.Handler{
		Initialize:              handler.Initialize,
		Initialized:             handler.Initialized,
		Shutdown:                handler.Shutdown,
		SetTrace:                handler.SetTrace,
		TextDocumentDidOpen:     handler.TextDocumentDidOpen,
		TextDocumentDidChange:   handler.TextDocumentDidChange,
		TextDocumentDidClose:    handler.TextDocumentDidClose,
		WorkspaceExecuteCommand: handler.WorkspaceExecuteCommand,
	}

	s := server.NewServer(&protocolHandler, serverName, *debug)

	if *healthAddr != "" {
		go serveHealthPing(*healthAddr)
	}

	log.Printf("starting %s over %s", serverName, *transport)

	var err error
	switch *transport {
	case "ws":
		err = s.RunWebSocket(*wsAddr)
	default:
		err = s.RunStdio()
	}
	if err != nil {
		log.Fatalf("%s exited: %s", serverName, err)
	}
}

var healthUpgrader = websocket.Upgrader{}

// serveHealthPing answers every inbound websocket connection with a
// single "pong" frame and closes it — a liveness probe separate from the
// LSP protocol connection itself, so an orchestrator can poll it without
// speaking JSON-RPC.
func serveHealthPing(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		conn, err := healthUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("pong"))
	})
	log.Printf("%s liveness ping listening on %s/healthz", serverName, addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("%s liveness ping exited: %s", serverName, err)
	}
}
