package debug

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"cogbot/application"
	"cogbot/domain/interfaces"
	"cogbot/domain/services"
)

// Shell is an interactive console for a running bot
type Shell struct {
	client     *DebugClient
	uowFactory application.UnitOfWorkFactory
	commands   map[string]Command
	out        io.Writer
	running    bool
}

// Command represents a debug command
type Command struct {
	Handler     CommandHandler
	Description string
	Usage       string
}

// CommandHandler is a function that handles a debug command
type CommandHandler func(ctx context.Context, s *Shell, args []string) error

// NewShell creates a new debug shell instance
func NewShell(client *DebugClient, uowFactory application.UnitOfWorkFactory, out io.Writer) *Shell {
	s := &Shell{
		client:     client,
		uowFactory: uowFactory,
		out:        out,
		running:    true,
	}
	s.commands = map[string]Command{
		"help":     {Handler: cmdHelp, Description: "Show available commands", Usage: "help"},
		"guilds":   {Handler: cmdGuilds, Description: "List guilds the bot is in", Usage: "guilds"},
		"replay":   {Handler: cmdReplay, Description: "Run a message through BotShield and SongLink again", Usage: "replay <channel_id> <message_id>"},
		"verify":   {Handler: cmdVerify, Description: "Mark a member verified", Usage: "verify <guild_id> <user_id>"},
		"unverify": {Handler: cmdUnverify, Description: "Reset a member's verification", Usage: "unverify <guild_id> <user_id>"},
		"links":    {Handler: cmdLinks, Description: "Show recent Challenger Mode account links", Usage: "links [limit]"},
	}
	return s
}

// Run reads commands from in until EOF, exit or context cancellation
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for s.running {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fmt.Fprint(s.out, "\ndebug> ")
		if !scanner.Scan() {
			break
		}
		s.Execute(ctx, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// Execute runs a single command line
func (s *Shell) Execute(ctx context.Context, line string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}

	name, args := parts[0], parts[1:]
	if name == "exit" || name == "quit" {
		s.running = false
		fmt.Fprintln(s.out, "Exiting debug shell. Bot will continue running.")
		return
	}

	cmd, ok := s.commands[name]
	if !ok {
		fmt.Fprintf(s.out, "Error: unknown command: %s. Type 'help' for available commands\n", name)
		return
	}
	if err := cmd.Handler(ctx, s, args); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func cmdHelp(ctx context.Context, s *Shell, args []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := s.commands[name]
		fmt.Fprintf(s.out, "  %-34s %s\n", cmd.Usage, cmd.Description)
	}
	fmt.Fprintf(s.out, "  %-34s %s\n", "exit", "Leave the shell")
	return nil
}

func cmdGuilds(ctx context.Context, s *Shell, args []string) error {
	guilds, err := s.client.GetGuilds()
	if err != nil {
		return err
	}
	if len(guilds) == 0 {
		fmt.Fprintln(s.out, "No guilds.")
		return nil
	}
	for _, g := range guilds {
		fmt.Fprintf(s.out, "  %s  %s (%d members)\n", g.ID, g.Name, g.MemberCount)
	}
	return nil
}

func cmdReplay(ctx context.Context, s *Shell, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: replay <channel_id> <message_id>")
	}
	if err := s.client.ReplayMessage(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Message replayed.")
	return nil
}

func cmdVerify(ctx context.Context, s *Shell, args []string) error {
	guildID, userID, err := parseGuildUser(args, "verify")
	if err != nil {
		return err
	}

	err = s.withShield(ctx, guildID, func(svc interfaces.ShieldService) error {
		return svc.VerifyMember(ctx, guildID, userID)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "User %d verified in guild %d.\n", userID, guildID)
	return nil
}

func cmdUnverify(ctx context.Context, s *Shell, args []string) error {
	guildID, userID, err := parseGuildUser(args, "unverify")
	if err != nil {
		return err
	}

	var existed bool
	err = s.withShield(ctx, guildID, func(svc interfaces.ShieldService) error {
		var err error
		existed, err = svc.UnverifyMember(ctx, guildID, userID)
		return err
	})
	if err != nil {
		return err
	}
	if !existed {
		fmt.Fprintf(s.out, "No verification record for user %d.\n", userID)
		return nil
	}
	fmt.Fprintf(s.out, "Verification removed for user %d.\n", userID)
	return nil
}

func cmdLinks(ctx context.Context, s *Shell, args []string) error {
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		limit = n
	}

	uow := s.uowFactory.CreateForGuild(0)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	svc := services.NewTournamentService(
		uow.GuildSettingsRepository(),
		uow.TournamentRepository(),
		uow.MatchVoiceChannelRepository(),
		uow.AccountLinkRepository(),
		uow.EventBus(),
	)
	links, total, err := svc.ListAccountLinks(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "%d linked accounts\n", total)
	for _, link := range links {
		fmt.Fprintf(s.out, "  %s -> %d\n", link.CMUserID, link.DiscordUserID)
	}
	return nil
}

func (s *Shell) withShield(ctx context.Context, guildID int64, fn func(svc interfaces.ShieldService) error) error {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	svc := services.NewShieldService(uow.GuildSettingsRepository(), uow.MemberVerificationRepository(), uow.EventBus())
	if err := fn(svc); err != nil {
		return err
	}
	return uow.Commit()
}

func parseGuildUser(args []string, name string) (int64, int64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("usage: %s <guild_id> <user_id>", name)
	}
	guildID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid guild ID %q", args[0])
	}
	userID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid user ID %q", args[1])
	}
	return guildID, userID, nil
}
