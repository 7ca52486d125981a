package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/requestbot/core/logger"
	"github.com/m3rciful/requestbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry is the declared surface of the bot: slash commands with their
// aliases and callback handlers keyed by the callback unique id.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	aliases   map[string]string // "/alias" -> canonical command
	callbacks map[string]tele.HandlerFunc
	unknownCb tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback handler just
// answers the button press.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		unknownCb: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// RegisterCommand declares name (with its leading slash). Invalid or
// duplicate declarations are logged and ignored.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	reason := ""
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		reason = "invalid"
	case !strings.HasPrefix(name, "/"):
		reason = "no_slash_prefix"
	}
	if reason != "" {
		wireWarn("register.command.skip", slog.String("name", name), slog.String("reason", reason))
		return
	}

	name = strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.resolveLocked(name); taken {
		wireWarn("register.command.duplicate", slog.String("name", name))
		return
	}
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		alias := "/" + strings.TrimPrefix(strings.ToLower(a), "/")
		if _, taken := r.resolveLocked(alias); taken {
			wireWarn("register.alias.duplicate", slog.String("name", name), slog.String("alias", alias))
			continue
		}
		r.aliases[alias] = name
	}
}

func (r *Registry) resolveLocked(name string) (string, bool) {
	if _, ok := r.commands[name]; ok {
		return name, true
	}
	key, ok := r.aliases[name]
	return key, ok
}

// LookupCommand resolves the first word of text to a canonical command,
// ignoring arguments and a "@botname" suffix.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	name := CommandName(text)
	if name == "" {
		return "", commands.Command{}, false
	}
	if name[0] != '/' {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.resolveLocked(name)
	if !ok {
		return "", commands.Command{}, false
	}
	return key, r.commands[key], true
}

// Commands returns a copy of the declared commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// ListCommands returns the command menu sorted by name. With publicOnly set,
// hidden and operator-only commands are left out.
func (r *Registry) ListCommands(publicOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if publicOnly && (cmd.Hidden || cmd.OperatorOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterCallback binds a callback unique id to its handler.
func (r *Registry) RegisterCallback(key string, h tele.HandlerFunc) error {
	if key == "" || h == nil {
		wireWarn("register.callback.skip", slog.String("key", key), slog.Bool("handler_nil", h == nil))
		return fmt.Errorf("telegram: invalid callback registration %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		wireWarn("register.callback.duplicate", slog.String("key", key))
		return fmt.Errorf("telegram: callback already registered: %s", key)
	}
	r.callbacks[key] = h
	return nil
}

// GetCallback returns the handler bound to key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered callback ids, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetCallbackNotFound replaces the handler for unregistered callback ids.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.unknownCb = h
	r.mu.Unlock()
}

// CallbackNotFound returns the handler for unregistered callback ids.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unknownCb
}

// CommandName returns the lowercased first word of text without a
// "@botname" mention, e.g. "/Stats@request_bot now" -> "/stats".
func CommandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name)
}

// InitBotCommands publishes the public command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	menu := reg.ListCommands(true)
	if err := bot.SetCommands(menu); err != nil {
		logger.Error(context.Background(), logger.CompWire, "register.commands.set_failed", logger.ErrAttrs(err)...)
		return
	}
	logger.Info(context.Background(), logger.CompWire, "register.commands.set", slog.Int("commands", len(menu)))
}

func wireWarn(event string, attrs ...slog.Attr) {
	logger.Warn(context.Background(), logger.CompWire, event, attrs...)
}
