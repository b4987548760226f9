package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerAddr string        `envconfig:"CHAT_SERVER_ADDR" default:"http://localhost:8080"`
	Timeout    time.Duration `envconfig:"CHAT_HTTP_TIMEOUT" default:"10s"`
	Colours    bool          `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if !config.Colours {
		color.Disable()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := &apiClient{
		baseURL: strings.TrimSuffix(config.ServerAddr, "/"),
		http:    &http.Client{Timeout: config.Timeout},
	}

	color.Green.Printf("Connected to %s. Type 'help' for commands.\n", config.ServerAddr)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return exitOK, scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		command, args := fields[0], fields[1:]

		if command == "quit" || command == "exit" {
			return exitOK, nil
		}

		if err := dispatch(ctx, api, scanner, command, args); err != nil {
			color.Red.Printf("error: %v\n", err)
		}
	}
}

func dispatch(ctx context.Context, api *apiClient, scanner *bufio.Scanner, command string, args []string) error {
	switch command {
	case "help":
		printHelp()
		return nil
	case "register":
		return api.register(args)
	case "login":
		return api.login(args)
	case "create":
		return api.createGroup(args)
	case "find":
		return api.findGroup(args)
	case "members":
		return api.members(args)
	case "history":
		return api.history(args)
	case "invite":
		return api.invite(args)
	case "invites":
		return api.listInvitations()
	case "accept":
		return api.respondInvitation(args, "accept")
	case "decline":
		return api.respondInvitation(args, "decline")
	case "leave":
		return api.leaveGroup(args)
	case "join":
		return api.joinChat(ctx, scanner, args)
	default:
		return fmt.Errorf("unknown command %q, try 'help'", command)
	}
}

func printHelp() {
	fmt.Println(`Commands:
  register <username> <password>   create an account
  login <username> <password>      authenticate and keep the token
  create <name>                    create a group (you become its first member)
  find <name>                      look up a group by name
  members <group-id>               list group members
  history <group-id>               show persisted messages
  invite <group-id> <username>     invite a user into a group
  invites                          list your pending invitations
  accept <invitation-id>           accept an invitation
  decline <invitation-id>          decline an invitation
  leave <group-id>                 leave a group
  join <group-id>                  open the live chat (type '/quit' to leave)
  quit                             exit`)
}

type apiClient struct {
	baseURL string
	http    *http.Client
	token   string
}

type errorBody struct {
	Error string `json:"error"`
}

// call performs one JSON request and decodes the response into out when the
// status is successful; otherwise the server's error message is returned.
func (c *apiClient) call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		var failure errorBody
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return fmt.Errorf("%s (%d)", failure.Error, response.StatusCode)
		}
		return fmt.Errorf("request failed with status %d", response.StatusCode)
	}

	if out != nil && len(raw) > 0 {
		return json.Unmarshal(raw, out)
	}
	return nil
}

func (c *apiClient) register(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: register <username> <password>")
	}
	var result struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	err := c.call(http.MethodPost, "/users/register",
		map[string]string{"username": args[0], "password": args[1]}, &result)
	if err != nil {
		return err
	}
	color.Green.Printf("registered %s (%s)\n", result.Username, result.ID)
	return nil
}

func (c *apiClient) login(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <username> <password>")
	}
	var result struct {
		Username string `json:"username"`
		Token    string `json:"token"`
	}
	err := c.call(http.MethodPost, "/users/login",
		map[string]string{"username": args[0], "password": args[1]}, &result)
	if err != nil {
		return err
	}
	c.token = result.Token
	color.Green.Printf("logged in as %s\n", result.Username)
	return nil
}

func (c *apiClient) createGroup(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: create <name>")
	}
	var result struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.call(http.MethodPost, "/groups", map[string]string{"name": args[0]}, &result); err != nil {
		return err
	}
	color.Green.Printf("group %s created: %s\n", result.Name, result.ID)
	return nil
}

func (c *apiClient) findGroup(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: find <name>")
	}
	var result struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.call(http.MethodGet, "/groups/by_name/"+url.PathEscape(args[0]), nil, &result); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", result.ID, result.Name)
	return nil
}

func (c *apiClient) members(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: members <group-id>")
	}
	var result struct {
		Members []struct {
			UserID   string    `json:"user_id"`
			Username string    `json:"username"`
			JoinedAt time.Time `json:"joined_at"`
		} `json:"members"`
	}
	if err := c.call(http.MethodGet, "/groups/"+args[0]+"/members", nil, &result); err != nil {
		return err
	}

	table := newTable([]string{"Username", "User ID", "Joined"})
	for _, m := range result.Members {
		table.Append([]string{m.Username, m.UserID, m.JoinedAt.Format(time.DateTime)})
	}
	table.Render()
	return nil
}

func (c *apiClient) history(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: history <group-id>")
	}
	var result struct {
		Messages []struct {
			Sender    string    `json:"sender_display_name"`
			Content   string    `json:"content"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"messages"`
	}
	if err := c.call(http.MethodGet, "/groups/"+args[0]+"/messages", nil, &result); err != nil {
		return err
	}
	for _, m := range result.Messages {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format(time.TimeOnly), m.Sender, m.Content)
	}
	return nil
}

func (c *apiClient) invite(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: invite <group-id> <username>")
	}
	var user struct {
		ID string `json:"id"`
	}
	if err := c.call(http.MethodGet, "/users/by_username/"+url.PathEscape(args[1]), nil, &user); err != nil {
		return err
	}
	err := c.call(http.MethodPost, "/groups/"+args[0]+"/invite",
		map[string]string{"user_id": user.ID}, nil)
	if err != nil {
		return err
	}
	color.Green.Printf("invitation sent to %s\n", args[1])
	return nil
}

func (c *apiClient) listInvitations() error {
	var result struct {
		Invitations []struct {
			ID        string `json:"id"`
			GroupName string `json:"group_name"`
			Inviter   string `json:"inviter"`
		} `json:"invitations"`
	}
	if err := c.call(http.MethodGet, "/invitations", nil, &result); err != nil {
		return err
	}

	table := newTable([]string{"Invitation ID", "Group", "Invited by"})
	for _, inv := range result.Invitations {
		table.Append([]string{inv.ID, inv.GroupName, inv.Inviter})
	}
	table.Render()
	return nil
}

func (c *apiClient) respondInvitation(args []string, action string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <invitation-id>", action)
	}
	if err := c.call(http.MethodPost, "/invitations/"+args[0]+"/"+action, nil, nil); err != nil {
		return err
	}
	color.Green.Printf("invitation %sed\n", action)
	return nil
}

func (c *apiClient) leaveGroup(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: leave <group-id>")
	}
	if err := c.call(http.MethodDelete, "/groups/"+args[0]+"/leave", nil, nil); err != nil {
		return err
	}
	color.Green.Println("left the group")
	return nil
}

// joinChat opens the websocket and runs until the user types /quit, the
// server drops the connection, or a signal arrives.
func (c *apiClient) joinChat(ctx context.Context, scanner *bufio.Scanner, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: join <group-id>")
	}
	if c.token == "" {
		return fmt.Errorf("login first")
	}

	wsBase := strings.Replace(c.baseURL, "http", "ws", 1)
	target := fmt.Sprintf("%s/groups/%s/chat?token=%s", wsBase, args[0], url.QueryEscape(c.token))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("could not join chat: %w", err)
	}
	defer conn.Close()

	color.Green.Println("joined, type messages ('/quit' to leave)")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame struct {
				Sender    string    `json:"sender_display_name"`
				Content   string    `json:"content"`
				CreatedAt time.Time `json:"created_at"`
			}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			stamp := frame.CreatedAt.Format(time.TimeOnly)
			if frame.Sender == "system" {
				color.Yellow.Printf("[%s] * %s\n", stamp, frame.Content)
			} else {
				fmt.Printf("[%s] %s: %s\n", stamp, frame.Sender, frame.Content)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			color.Yellow.Println("connection closed by server")
			return nil
		default:
		}

		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "/quit" {
			return nil
		}
		if text == "" {
			continue
		}
		if err := conn.WriteJSON(map[string]string{"content": text}); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
	}
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
