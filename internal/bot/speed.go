package bot

import (
	"context"
	"strconv"

	"github.com/chatarr/chatarr/internal/config"
	"github.com/chatarr/chatarr/internal/session"
)

// speedEntry runs the shared enable/admin gating of the download
// client commands. It reports whether the conversation may proceed.
func (b *Bot) speedEntry(cfg config.SpeedClient, ev Event, notEnabledKey string) (bool, error) {
	if !cfg.Enable {
		return false, b.say(ev.ChatID, notEnabledKey)
	}
	if cfg.OnlyAdmin && !b.isAdmin(ev) {
		return false, b.say(ev.ChatID, "NotAdmin")
	}
	return true, nil
}

func (b *Bot) startTransmission(sess *session.Session, ev Event) error {
	ok, err := b.speedEntry(b.cfg.Transmission, ev, "Transmission.NotEnabled")
	if !ok {
		return err
	}
	rows := []KeyboardRow{
		{{Label: b.tr.T("Transmission.TSL"), Data: "tsl"}},
		{{Label: b.tr.T("Transmission.Normal"), Data: "normal"}},
	}
	sess.State = session.StateAwaitTransmissionSpeed
	_, err = b.gw.SendKeyboard(ev.ChatID, b.tr.T("Transmission.Speed"), rows)
	return err
}

func (b *Bot) consumeTransmissionSpeed(ctx context.Context, sess *session.Session, ev Event) error {
	var slow bool
	switch ev.CallbackData {
	case "tsl":
		slow = true
	case "normal":
		slow = false
	default:
		return nil
	}
	b.sessions.Clear(ev.ChatID)

	if err := b.transmission.SetAltSpeed(ctx, slow); err != nil {
		b.logger.WithError(err).Error("Failed to change Transmission speed")
		return b.say(ev.ChatID, "Transmission.Error")
	}
	if slow {
		return b.say(ev.ChatID, "Transmission.ChangedToTSL")
	}
	return b.say(ev.ChatID, "Transmission.ChangedToNormal")
}

func (b *Bot) startSabnzbd(sess *session.Session, ev Event) error {
	ok, err := b.speedEntry(b.cfg.Sabnzbd, ev, "Sabnzbd.NotEnabled")
	if !ok {
		return err
	}
	rows := []KeyboardRow{
		{{Label: b.tr.T("Sabnzbd.Limit25"), Data: "25"}},
		{{Label: b.tr.T("Sabnzbd.Limit50"), Data: "50"}},
		{{Label: b.tr.T("Sabnzbd.Limit100"), Data: "100"}},
	}
	sess.State = session.StateAwaitSabnzbdSpeed
	_, err = b.gw.SendKeyboard(ev.ChatID, b.tr.T("Sabnzbd.Speed"), rows)
	return err
}

func (b *Bot) consumeSabnzbdSpeed(ctx context.Context, sess *session.Session, ev Event) error {
	percent, err := strconv.Atoi(ev.CallbackData)
	if err != nil || (percent != 25 && percent != 50 && percent != 100) {
		return nil
	}
	b.sessions.Clear(ev.ChatID)

	if err := b.sabnzbd.SetSpeedLimit(ctx, percent); err != nil {
		b.logger.WithError(err).Error("Failed to change SABnzbd speed limit")
		return b.say(ev.ChatID, "Sabnzbd.Error")
	}
	return b.say(ev.ChatID, "Sabnzbd.ChangedTo"+ev.CallbackData)
}

func (b *Bot) startQbittorrent(sess *session.Session, ev Event) error {
	ok, err := b.speedEntry(b.cfg.Qbittorrent, ev, "qBittorrent.NotEnabled")
	if !ok {
		return err
	}
	rows := []KeyboardRow{
		{{Label: b.tr.T("qBittorrent.Alternate"), Data: "alternate"}},
		{{Label: b.tr.T("qBittorrent.Normal"), Data: "normal"}},
	}
	sess.State = session.StateAwaitQbittorrentSpeed
	_, err = b.gw.SendKeyboard(ev.ChatID, b.tr.T("qBittorrent.Speed"), rows)
	return err
}

func (b *Bot) consumeQbittorrentSpeed(ctx context.Context, sess *session.Session, ev Event) error {
	var alternate bool
	switch ev.CallbackData {
	case "alternate":
		alternate = true
	case "normal":
		alternate = false
	default:
		return nil
	}
	b.sessions.Clear(ev.ChatID)

	if err := b.qbittorrent.SetAlternativeSpeed(ctx, alternate); err != nil {
		b.logger.WithError(err).Error("Failed to change qBittorrent speed mode")
		return b.say(ev.ChatID, "qBittorrent.Error")
	}
	if alternate {
		return b.say(ev.ChatID, "qBittorrent.ChangedToAlternate")
	}
	return b.say(ev.ChatID, "qBittorrent.ChangedToNormal")
}
