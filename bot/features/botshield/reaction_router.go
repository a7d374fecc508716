package botshield

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// reactionRouter forwards reactions on captcha messages to the goroutine waiting on them
type reactionRouter struct {
	mu      sync.Mutex
	waiters map[string]chan *discordgo.MessageReaction
}

func newReactionRouter() *reactionRouter {
	return &reactionRouter{waiters: make(map[string]chan *discordgo.MessageReaction)}
}

// register starts routing reactions of a message. The returned func stops it.
func (r *reactionRouter) register(messageID string) (<-chan *discordgo.MessageReaction, func()) {
	ch := make(chan *discordgo.MessageReaction, 16)

	r.mu.Lock()
	r.waiters[messageID] = ch
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		if r.waiters[messageID] == ch {
			delete(r.waiters, messageID)
		}
		r.mu.Unlock()
	}
}

// dispatch hands a reaction to its waiter without blocking; it reports whether one was registered
func (r *reactionRouter) dispatch(reaction *discordgo.MessageReaction) bool {
	r.mu.Lock()
	ch, ok := r.waiters[reaction.MessageID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case ch <- reaction:
	default:
	}
	return true
}

// pendingChallenges tracks members that currently have an open captcha
type pendingChallenges struct {
	mu      sync.Mutex
	members map[pendingKey]struct{}
}

type pendingKey struct {
	guildID int64
	userID  int64
}

func newPendingChallenges() *pendingChallenges {
	return &pendingChallenges{members: make(map[pendingKey]struct{})}
}

// acquire marks the member pending; false means a challenge is already open
func (p *pendingChallenges) acquire(guildID, userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pendingKey{guildID: guildID, userID: userID}
	if _, ok := p.members[key]; ok {
		return false
	}
	p.members[key] = struct{}{}
	return true
}

func (p *pendingChallenges) release(guildID, userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members, pendingKey{guildID: guildID, userID: userID})
}

func (p *pendingChallenges) isPending(guildID, userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.members[pendingKey{guildID: guildID, userID: userID}]
	return ok
}
