package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/armin-rsh/FitLinkApp/pkg/chatclient"
	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// Terminal chat client for the FitLink backend. Logs in, resolves the
// permitted recipients for the account's role and runs one conversation
// until interrupted.
func main() {
	server := flag.String("server", "http://localhost:8080", "backend base URL")
	username := flag.String("user", "", "username to log in as")
	password := flag.String("pass", "", "password")
	peer := flag.Int64("peer", 0, "user id to chat with (prompted if omitted)")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: chat -user NAME -pass SECRET [-server URL] [-peer ID]")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := chatclient.Login(ctx, *server, *username, *password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	api := chatclient.NewAPI(*server, token)

	contacts, err := chatclient.LoadContacts(ctx, api)
	if err != nil {
		log.Fatalf("load contacts: %v", err)
	}

	stdin := bufio.NewScanner(os.Stdin)
	peerID := *peer
	if peerID == 0 {
		peerID = choosePeer(stdin, contacts)
	}

	wsURL, err := websocketURL(*server)
	if err != nil {
		log.Fatalf("bad server url: %v", err)
	}

	changed := make(chan struct{}, 1)
	session := chatclient.NewSession(chatclient.SessionConfig{
		API:      api,
		Contacts: contacts,
		Dial: func(ctx context.Context) (chatclient.LiveChannel, error) {
			return chatclient.DialLive(ctx, wsURL, token)
		},
		OnChange: func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		},
		OnError: func(err error) {
			fmt.Printf("\n! %v\n> ", err)
		},
	}, peerID)

	if err := session.Open(ctx); err != nil {
		log.Fatalf("open session: %v", err)
	}
	defer session.Close()

	render(session)
	go printIncoming(ctx, session, changed, contacts.Self.ID)
	if !session.Connected() {
		fmt.Println("(live channel unavailable, sending over REST)")
	}
	fmt.Println("Type a message, or /edit ID TEXT, /delete ID, /image PATH [TEXT], /quit")

	for stdin.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}

		if err := dispatch(ctx, session, line); err != nil {
			if err == errQuit {
				return
			}
			fmt.Printf("! %v\n", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

func dispatch(ctx context.Context, session *chatclient.Session, line string) error {
	switch {
	case line == "/quit":
		return errQuit
	case strings.HasPrefix(line, "/edit "):
		id, rest, err := splitIDArg(strings.TrimPrefix(line, "/edit "))
		if err != nil {
			return err
		}
		return session.Edit(ctx, id, rest)
	case strings.HasPrefix(line, "/delete "):
		id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "/delete ")), 10, 64)
		if err != nil {
			return fmt.Errorf("usage: /delete ID")
		}
		return session.Delete(ctx, id)
	case strings.HasPrefix(line, "/image "):
		path, caption := splitFirst(strings.TrimPrefix(line, "/image "))
		return session.Send(ctx, caption, path)
	default:
		return session.Send(ctx, line, "")
	}
}

func choosePeer(stdin *bufio.Scanner, contacts *chatclient.Contacts) int64 {
	recipients := contacts.Recipients()
	if len(recipients) > 0 {
		fmt.Println("You can message:")
		for _, user := range recipients {
			fmt.Printf("  %d  %s (%s)\n", user.ID, user.DisplayName, user.Role)
		}
	} else if contacts.Self.Role == model.RoleAdmin {
		fmt.Println("Admin account: any user id is reachable.")
	} else {
		fmt.Println("No recipients available for this account.")
		os.Exit(1)
	}

	for {
		fmt.Print("Chat with user id: ")
		if !stdin.Scan() {
			os.Exit(0)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(stdin.Text()), 10, 64)
		if err != nil || id <= 0 {
			fmt.Println("enter a numeric user id")
			continue
		}
		if !contacts.CanMessage(id) {
			fmt.Println("that user is not a permitted recipient")
			continue
		}
		return id
	}
}

// printIncoming announces messages from the peer as they arrive. Coalesced
// change signals mean an announcement may cover several events; the prompt
// loop owns everything the local user typed, so those are skipped here.
func printIncoming(ctx context.Context, session *chatclient.Session, changed <-chan struct{}, selfID int64) {
	seen := make(map[int64]bool)
	for _, entry := range session.Messages() {
		seen[entry.ID] = true
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
		for _, entry := range session.Messages() {
			if seen[entry.ID] || entry.SenderID == selfID {
				seen[entry.ID] = true
				continue
			}
			seen[entry.ID] = true
			text := entry.Message.Message
			if entry.Image != "" {
				text = fmt.Sprintf("%s [image: %s]", text, entry.Image)
			}
			fmt.Printf("\n[%d] %d: %s\n> ", entry.ID, entry.SenderID, text)
		}
	}
}

func render(session *chatclient.Session) {
	for _, entry := range session.Messages() {
		marker := ""
		if entry.Pending {
			marker = " (sending)"
		}
		if entry.ImageUploading {
			marker = " (uploading image)"
		}
		text := entry.Message.Message
		if entry.Image != "" {
			text = fmt.Sprintf("%s [image: %s]", text, entry.Image)
		}
		fmt.Printf("[%d] %d: %s%s\n", entry.ID, entry.SenderID, text, marker)
	}
}

func websocketURL(server string) (string, error) {
	parsed, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/api/v1/ws"
	return parsed.String(), nil
}

func splitIDArg(s string) (int64, string, error) {
	idText, rest := splitFirst(s)
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("usage: /edit ID TEXT")
	}
	if rest == "" {
		return 0, "", fmt.Errorf("usage: /edit ID TEXT")
	}
	return id, rest, nil
}

func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
