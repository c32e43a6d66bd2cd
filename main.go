// main.go
// Application entry point: a terminal lobby client. Connects to the lobby
// server, authenticates, and offers a small command loop for rooms and
// chat.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lobbyclient/internal/api"
	"lobbyclient/internal/bridge"
	"lobbyclient/internal/config"
	"lobbyclient/internal/conn"
	"lobbyclient/internal/lobby"
	"lobbyclient/internal/logger"
	"lobbyclient/internal/protocol"
)

var (
	configPath = flag.String("config", "client_config.json", "Path to the JSON config file")
	serverURL  = flag.String("server", "", "Lobby server websocket URL (overrides config)")
	username   = flag.String("username", "", "Username to authenticate with")
)

func main() {
	flag.Parse()

	// .env is optional; flags and real env vars win over it.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *username == "" {
		fmt.Fprintln(os.Stderr, "usage: lobbyclient -username <name> [-server ws://host:port]")
		os.Exit(2)
	}

	logger.Init(cfg.Log)
	log := logger.New("main")

	dialer := conn.NewWebSocketDialer()
	manager := conn.NewManager(dialer, cfg.MaxReconnectAttempts, cfg.ReconnectInterval, logger.New("conn"))

	session := lobby.New(manager, logger.New("lobby"))
	session.Attach()
	defer session.Close()

	mirror := bridge.Dial(cfg.NatsURL, logger.New("bridge"))
	mirror.Attach(manager)
	defer mirror.Detach(manager)

	apiClient := api.NewClient(cfg.APIBaseURL, logger.New("api"))

	wireStatusOutput(manager, session, *username)

	log.Infof("connecting to %s", cfg.ServerURL)
	manager.Connect(cfg.ServerURL)
	defer manager.Disconnect()

	runPrompt(manager, session, apiClient, cfg.ServerURL)
}

// wireStatusOutput prints connection status transitions and incoming chat,
// and re-authenticates whenever a connection is (re)established.
func wireStatusOutput(manager *conn.Manager, session *lobby.Lobby, username string) {
	manager.Subscribe(protocol.EventOpen, func(conn.Event) {
		fmt.Println("* status: Connected")
		session.Login(username)
	})
	manager.Subscribe(protocol.EventClose, func(conn.Event) {
		fmt.Println("* status: Disconnected")
	})
	manager.Subscribe(protocol.EventError, func(conn.Event) {
		fmt.Println("* status: Error")
	})
	manager.Subscribe(protocol.EventMaxReconnectAttemptsReached, func(conn.Event) {
		fmt.Println("* status: Connection Failed (type /connect to retry)")
	})
	manager.Subscribe(protocol.EventAuthSuccess, func(conn.Event) {
		if u := session.CurrentUser(); u != nil {
			fmt.Printf("* logged in as %s\n", u.Username)
		}
	})
	manager.Subscribe(protocol.EventChatMessage, func(ev conn.Event) {
		p, err := protocol.DecodeChatEvent(ev.Frame)
		if err != nil || p.RoomID != session.CurrentRoomID() {
			return
		}
		fmt.Printf("[%s] %s\n", p.Username, p.Message)
	})
}

func runPrompt(manager *conn.Manager, session *lobby.Lobby, apiClient *api.Client, serverURL string) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: /rooms /users /create <name> [game] /join <id> /leave /stats /health /status /connect /quit; anything else is chat")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if !session.SendChat(line) {
				fmt.Println("* join a room before chatting")
			}
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "/quit":
			return
		case "/status":
			fmt.Printf("* status: %s\n", manager.Status())
		case "/connect":
			manager.Connect(serverURL)
		case "/rooms":
			printRooms(session)
		case "/users":
			printUsers(session)
		case "/create":
			if len(fields) < 2 {
				fmt.Println("* usage: /create <name> [game]")
				continue
			}
			gameType := ""
			if len(fields) > 2 {
				gameType = fields[2]
			}
			session.CreateRoom(fields[1], gameType)
		case "/join":
			if len(fields) != 2 {
				fmt.Println("* usage: /join <room-id>")
				continue
			}
			session.JoinRoom(fields[1])
		case "/leave":
			if !session.LeaveRoom() {
				fmt.Println("* not in a room")
			}
		case "/stats":
			printEndpoint(apiClient.Stats)
		case "/health":
			printEndpoint(apiClient.Health)
		default:
			fmt.Printf("* unknown command %s\n", fields[0])
		}
	}
}

func printRooms(session *lobby.Lobby) {
	rooms := session.Rooms()
	if len(rooms) == 0 {
		fmt.Println("* no active rooms")
		return
	}
	for _, r := range rooms {
		fmt.Printf("  %s  %-20s %-10s %d/%d  [%s]\n",
			r.ID, r.Name, r.Status, len(r.Players), r.MaxPlayers, session.Action(r))
	}
}

func printUsers(session *lobby.Lobby) {
	users := session.Users()
	if len(users) == 0 {
		fmt.Println("* no users online")
		return
	}
	for _, u := range users {
		marker := ""
		if own := session.CurrentUser(); own != nil && own.ID == u.ID {
			marker = " (you)"
		}
		fmt.Printf("  %s%s\n", u.Username, marker)
	}
}

func printEndpoint(fetch func(context.Context) (map[string]interface{}, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	doc, err := fetch(ctx)
	if err != nil {
		fmt.Printf("* %v\n", err)
		return
	}
	for k, v := range doc {
		fmt.Printf("  %s: %v\n", k, v)
	}
}
