package bot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// DebugCommand represents a debug command sent via HTTP
type DebugCommand struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params"`
}

// DebugResponse represents the response from a debug command
type DebugResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// GuildInfo represents basic guild information
type GuildInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// StartDebugAPI starts an internal HTTP API on localhost for debug commands
func (b *Bot) StartDebugAPI(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	server := &http.Server{
		Handler:      b.debugHandler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	b.debugServer = server

	go func() {
		log.Infof("Debug API listening on %s", listener.Addr())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Debug API server error: %v", err)
		}
	}()

	return nil
}

func (b *Bot) debugHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/debug/guilds", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(DebugResponse{
			Success: true,
			Data:    b.GetGuilds(),
		})
	})

	mux.HandleFunc("/debug/command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var cmd DebugCommand
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			respondWithError(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		switch cmd.Action {
		case "replay":
			channelID := cmd.Params["channel_id"]
			messageID := cmd.Params["message_id"]

			if channelID == "" || messageID == "" {
				respondWithError(w, "Missing channel_id or message_id", http.StatusBadRequest)
				return
			}

			if err := b.ReplayMessage(channelID, messageID); err != nil {
				respondWithError(w, fmt.Sprintf("Failed to replay message: %v", err), http.StatusInternalServerError)
				return
			}

			respondWithSuccess(w, "Message replayed successfully")

		default:
			respondWithError(w, fmt.Sprintf("Unknown action: %s", cmd.Action), http.StatusBadRequest)
		}
	})

	return mux
}

// GetGuilds returns the guilds in the session state
func (b *Bot) GetGuilds() []GuildInfo {
	b.session.State.RLock()
	defer b.session.State.RUnlock()

	guilds := make([]GuildInfo, 0, len(b.session.State.Guilds))
	for _, g := range b.session.State.Guilds {
		guilds = append(guilds, GuildInfo{ID: g.ID, Name: g.Name, MemberCount: g.MemberCount})
	}
	return guilds
}

// ReplayMessage fetches a message and runs it through the message pipeline again
func (b *Bot) ReplayMessage(channelID, messageID string) error {
	msg, err := b.session.ChannelMessage(channelID, messageID)
	if err != nil {
		return fmt.Errorf("failed to fetch message: %w", err)
	}

	// REST messages carry no guild ID
	if msg.GuildID == "" {
		channel, err := b.session.State.Channel(channelID)
		if err != nil {
			channel, err = b.session.Channel(channelID)
			if err != nil {
				return fmt.Errorf("failed to resolve channel: %w", err)
			}
		}
		msg.GuildID = channel.GuildID
	}

	log.WithFields(log.Fields{
		"channel_id": channelID,
		"message_id": messageID,
		"guild_id":   msg.GuildID,
	}).Info("Replaying message")

	b.handleMessageCreate(b.session, &discordgo.MessageCreate{Message: msg})
	return nil
}

func respondWithSuccess(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DebugResponse{
		Success: true,
		Message: message,
	})
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(DebugResponse{
		Success: false,
		Error:   message,
	})
}
