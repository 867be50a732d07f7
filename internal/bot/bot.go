// Package bot implements the conversational state machine on top of
// the Telegram transport: authorization, the add and delete dialogues,
// library listings and the download-client speed commands.
package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chatarr/chatarr/internal/auth"
	"github.com/chatarr/chatarr/internal/config"
	"github.com/chatarr/chatarr/internal/locale"
	"github.com/chatarr/chatarr/internal/services/arr"
	"github.com/chatarr/chatarr/internal/session"
)

// Transmission toggles the Transmission alternative speed mode.
type Transmission interface {
	SetAltSpeed(ctx context.Context, enabled bool) error
}

// Sabnzbd sets the SABnzbd speed limit percentage.
type Sabnzbd interface {
	SetSpeedLimit(ctx context.Context, percent int) error
}

// Qbittorrent toggles the qBittorrent alternative speed limits mode.
type Qbittorrent interface {
	SetAlternativeSpeed(ctx context.Context, enabled bool) error
}

// Deps bundles everything the bot needs. Transmission, Sabnzbd and
// Qbittorrent may be nil when the integration is disabled.
type Deps struct {
	Config       *config.Config
	Translator   *locale.Translator
	Gate         *auth.Gate
	Registry     *arr.Registry
	Sessions     *session.Store
	Gateway      Gateway
	Transmission Transmission
	Sabnzbd      Sabnzbd
	Qbittorrent  Qbittorrent
	Logger       *logrus.Logger
}

// Bot routes inbound events through the conversation state machine.
type Bot struct {
	cfg          *config.Config
	tr           *locale.Translator
	gate         *auth.Gate
	registry     *arr.Registry
	sessions     *session.Store
	gw           Gateway
	transmission Transmission
	sabnzbd      Sabnzbd
	qbittorrent  Qbittorrent
	logger       *logrus.Logger

	routes map[session.State][]route
}

type handlerFunc func(ctx context.Context, sess *session.Session, ev Event) error

// route pairs an event pattern with its handler. The first matching
// route of the current state wins.
type route struct {
	match  func(ev Event) bool
	handle handlerFunc
}

// New builds the bot and its state transition table.
func New(deps Deps) *Bot {
	b := &Bot{
		cfg:          deps.Config,
		tr:           deps.Translator,
		gate:         deps.Gate,
		registry:     deps.Registry,
		sessions:     deps.Sessions,
		gw:           deps.Gateway,
		transmission: deps.Transmission,
		sabnzbd:      deps.Sabnzbd,
		qbittorrent:  deps.Qbittorrent,
		logger:       deps.Logger,
	}

	anyText := func(ev Event) bool { return !ev.IsCallback() && ev.Text != "" }
	anyCallback := func(ev Event) bool { return ev.IsCallback() }
	anyEvent := func(ev Event) bool { return anyText(ev) || anyCallback(ev) }

	b.routes = map[session.State][]route{
		session.StateAwaitAuth: {
			{anyText, b.consumePassword},
		},
		session.StateAwaitTitle: {
			{anyText, b.consumeTitle},
		},
		session.StateAwaitType: {
			{anyEvent, b.consumeType},
		},
		session.StateAwaitInstance: {
			{anyCallback, b.consumeInstance},
		},
		session.StateAwaitOption: {
			{anyCallback, b.consumeOption},
		},
		session.StateAwaitPath: {
			{anyCallback, b.consumePath},
		},
		session.StateAwaitProfile: {
			{anyCallback, b.consumeProfile},
		},
		session.StateAwaitSeasons: {
			{anyCallback, b.consumeSeason},
		},
		session.StateAwaitDeleteTitle: {
			{anyText, b.consumeTitle},
		},
		session.StateAwaitDeleteType: {
			{anyEvent, b.consumeType},
		},
		session.StateAwaitDeleteInstance: {
			{anyCallback, b.consumeInstance},
		},
		session.StateAwaitDeleteOption: {
			{anyCallback, b.consumeDeleteOption},
		},
		session.StateAwaitTransmissionSpeed: {
			{anyCallback, b.consumeTransmissionSpeed},
		},
		session.StateAwaitSabnzbdSpeed: {
			{anyCallback, b.consumeSabnzbdSpeed},
		},
		session.StateAwaitQbittorrentSpeed: {
			{anyCallback, b.consumeQbittorrentSpeed},
		},
	}
	return b
}

// Handle dispatches one inbound event. Events that match nothing in
// the current state are dropped silently.
func (b *Bot) Handle(ctx context.Context, ev Event) {
	if ev.IsCallback() {
		b.gw.AnswerCallback(ev.CallbackID)
	}

	if b.cfg.EnableAllowlist && !b.allowed(ev) {
		b.logger.WithFields(logrus.Fields{
			"chat_id": ev.ChatID,
			"user_id": ev.UserID,
		}).Debug("Ignoring event from user outside the allowlist")
		return
	}

	sess := b.sessions.Fetch(ev.ChatID)

	var err error
	switch {
	case ev.Command != "":
		err = b.handleCommand(ctx, sess, ev)
	case sess.State != session.StateIdle && b.isEscape(ev, "Stop"):
		err = b.finish(sess, ev)
	case sess.State != session.StateIdle && b.isEscape(ev, "New"):
		err = b.restart(ctx, sess, ev)
	case sess.State == session.StateIdle && !ev.IsCallback():
		if cmd := b.keywordCommand(ev.Text); cmd != "" {
			ev.Command = cmd
			err = b.handleCommand(ctx, sess, ev)
		}
	default:
		for _, r := range b.routes[sess.State] {
			if r.match(ev) {
				err = r.handle(ctx, sess, ev)
				break
			}
		}
	}
	if err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": ev.ChatID,
			"state":   sess.State,
		}).Error("Failed to handle event")
	}
}

func (b *Bot) handleCommand(ctx context.Context, sess *session.Session, ev Event) error {
	ep := b.cfg.Entrypoints

	if ev.Command == ep.Auth {
		return b.startAuth(sess, ev)
	}
	if ev.Command == ep.Help {
		return b.sendHelp(ev)
	}

	// Everything else needs an authorized chat first.
	if !b.gate.IsKnownChat(ev.ChatID) {
		sess.State = session.StateAwaitAuth
		return b.say(ev.ChatID, "Authorize")
	}

	switch ev.Command {
	case ep.Add:
		return b.startAdd(ctx, sess, ev, b.mediaTypeFromText(ev.Args))
	case ep.Movie:
		return b.startAdd(ctx, sess, ev, arr.MediaTypeMovie)
	case ep.Series:
		return b.startAdd(ctx, sess, ev, arr.MediaTypeSeries)
	case ep.Music:
		return b.startAdd(ctx, sess, ev, arr.MediaTypeMusic)
	case ep.Delete:
		return b.startDelete(sess, ev)
	case ep.AllMovies:
		return b.sendLibrary(ctx, ev, arr.MediaTypeMovie)
	case ep.AllSeries:
		return b.sendLibrary(ctx, ev, arr.MediaTypeSeries)
	case ep.AllMusic:
		return b.sendLibrary(ctx, ev, arr.MediaTypeMusic)
	case ep.Transmission:
		return b.startTransmission(sess, ev)
	case ep.Sabnzbd:
		return b.startSabnzbd(sess, ev)
	case ep.Qbittorrent:
		return b.startQbittorrent(sess, ev)
	case "stop":
		if sess.State != session.StateIdle {
			return b.finish(sess, ev)
		}
	case "new":
		if sess.State != session.StateIdle {
			return b.restart(ctx, sess, ev)
		}
	}
	return nil
}

// finish ends the conversation from any state.
func (b *Bot) finish(sess *session.Session, ev Event) error {
	b.notifyAdmin(ev, "Notifications.Stop", nil)
	b.sessions.Clear(ev.ChatID)
	return b.say(ev.ChatID, "End")
}

// restart drops the session and re-enters the flow it was in.
func (b *Bot) restart(ctx context.Context, sess *session.Session, ev Event) error {
	flow := sess.Flow
	b.sessions.Clear(ev.ChatID)
	fresh := b.sessions.Fetch(ev.ChatID)
	if flow == session.FlowDelete {
		return b.startDelete(fresh, ev)
	}
	return b.startAdd(ctx, fresh, ev, "")
}

// keywordCommand resolves bare message text to the entrypoint command
// it stands for. Both the configured command name and, where one
// exists, the localized keyword match case-insensitively.
func (b *Bot) keywordCommand(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}
	ep := b.cfg.Entrypoints
	for _, e := range []struct {
		command   string
		localeKey string
	}{
		{ep.Auth, ""},
		{ep.Help, ""},
		{ep.Add, "Add"},
		{ep.Movie, "Movie"},
		{ep.Series, "Series"},
		{ep.Music, "Music"},
		{ep.Delete, "Delete"},
		{ep.AllMovies, "AllMovies"},
		{ep.AllSeries, "AllSeries"},
		{ep.AllMusic, "AllMusic"},
		{ep.Transmission, ""},
		{ep.Sabnzbd, ""},
		{ep.Qbittorrent, ""},
	} {
		if text == strings.ToLower(e.command) {
			return e.command
		}
		if e.localeKey != "" && text == strings.ToLower(b.tr.T(e.localeKey)) {
			return e.command
		}
	}
	return ""
}

// isEscape reports whether the event is the localized escape keyword
// or its callback token.
func (b *Bot) isEscape(ev Event, key string) bool {
	token := strings.ToLower(key)
	if ev.IsCallback() {
		return ev.CallbackData == token
	}
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	return text == token || text == strings.ToLower(b.tr.T(key))
}

func (b *Bot) mediaTypeFromText(text string) arr.MediaType {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "movie", strings.ToLower(b.tr.T("Movie")):
		return arr.MediaTypeMovie
	case "series", strings.ToLower(b.tr.T("Series")):
		return arr.MediaTypeSeries
	case "music", strings.ToLower(b.tr.T("Music")):
		return arr.MediaTypeMusic
	}
	return ""
}

func (b *Bot) allowed(ev Event) bool {
	return b.gate.IsPrivileged(ev.UserID, ev.Username, auth.AllowList) ||
		b.gate.IsPrivileged(ev.UserID, ev.Username, auth.AdminList)
}

func (b *Bot) isAdmin(ev Event) bool {
	return b.gate.IsPrivileged(ev.UserID, ev.Username, auth.AdminList)
}

func (b *Bot) arrConfig(mediaType arr.MediaType) config.Arr {
	switch mediaType {
	case arr.MediaTypeSeries:
		return b.cfg.Sonarr
	case arr.MediaTypeMusic:
		return b.cfg.Lidarr
	default:
		return b.cfg.Radarr
	}
}

// subject returns the localized "the movie"/"the series"/"the artist"
// phrase used in outcome messages.
func (b *Bot) subject(mediaType arr.MediaType) string {
	switch mediaType {
	case arr.MediaTypeSeries:
		return b.tr.T("SeriesWithArticle")
	case arr.MediaTypeMusic:
		return b.tr.T("MusicWithArticle")
	default:
		return b.tr.T("MovieWithArticle")
	}
}

func (b *Bot) say(chatID int64, key string) error {
	_, err := b.gw.SendText(chatID, b.tr.T(key))
	return err
}

func (b *Bot) sayf(chatID int64, key string, vars map[string]string) error {
	_, err := b.gw.SendText(chatID, b.tr.Tf(key, vars))
	return err
}

// notifyAdmin mirrors a conversation milestone to the configured admin
// channel. Admins acting themselves produce no notification.
func (b *Bot) notifyAdmin(ev Event, key string, vars map[string]string) {
	if b.cfg.AdminNotifyID == 0 || b.isAdmin(ev) {
		return
	}
	if vars == nil {
		vars = make(map[string]string)
	}
	vars["first_name"] = ev.FirstName
	vars["chat_id"] = strconv.FormatInt(ev.ChatID, 10)
	if _, err := b.gw.SendText(b.cfg.AdminNotifyID, b.tr.Tf(key, vars)); err != nil {
		b.logger.WithError(err).Warn("Failed to notify admin channel")
	}
}

// startAuth handles the explicit auth command. A password passed as
// argument is consumed immediately, otherwise the next text is.
func (b *Bot) startAuth(sess *session.Session, ev Event) error {
	if b.gate.IsKnownChat(ev.ChatID) {
		return b.say(ev.ChatID, "Chatid already allowed")
	}
	if ev.Args != "" {
		return b.authenticate(sess, ev, ev.Args)
	}
	sess.State = session.StateAwaitAuth
	return b.say(ev.ChatID, "Authorize")
}

func (b *Bot) consumePassword(_ context.Context, sess *session.Session, ev Event) error {
	return b.authenticate(sess, ev, ev.Text)
}

func (b *Bot) authenticate(sess *session.Session, ev Event, candidate string) error {
	name := ev.FirstName
	if name == "" {
		name = ev.Username
	}
	outcome, err := b.gate.Authenticate(candidate, ev.ChatID, name)
	if err != nil {
		return err
	}
	switch outcome {
	case auth.Added:
		b.sessions.Clear(ev.ChatID)
		return b.say(ev.ChatID, "Chatid added")
	case auth.AlreadyKnown:
		b.sessions.Clear(ev.ChatID)
		return b.say(ev.ChatID, "Chatid already allowed")
	default:
		// Stay in the auth state for another attempt.
		sess.State = session.StateAwaitAuth
		return b.say(ev.ChatID, "Wrong password")
	}
}

func (b *Bot) sendHelp(ev Event) error {
	ep := b.cfg.Entrypoints
	return b.sayf(ev.ChatID, "Help", map[string]string{
		"auth":         ep.Auth,
		"add":          ep.Add,
		"movie":        ep.Movie,
		"series":       ep.Series,
		"music":        ep.Music,
		"delete":       ep.Delete,
		"allSeries":    ep.AllSeries,
		"allMovies":    ep.AllMovies,
		"allMusic":     ep.AllMusic,
		"transmission": ep.Transmission,
		"sabnzbd":      ep.Sabnzbd,
		"qbittorrent":  ep.Qbittorrent,
	})
}
