package bot

import (
	"context"

	"github.com/chatarr/chatarr/internal/session"
)

// startDelete enters the delete flow. Only admins may remove titles.
func (b *Bot) startDelete(sess *session.Session, ev Event) error {
	if !b.isAdmin(ev) {
		return b.say(ev.ChatID, "NotAdmin")
	}

	sess.Flow = session.FlowDelete
	sess.MediaType = ""
	sess.State = session.StateAwaitDeleteTitle
	b.notifyAdmin(ev, "Notifications.Delete", nil)
	return b.say(ev.ChatID, "Title")
}

// confirmDelete checks the found title against the library. Absent
// titles end the conversation; present ones get the delete menu.
func (b *Bot) confirmDelete(ctx context.Context, sess *session.Session, ev Event) error {
	client, err := b.registry.Client(sess.MediaType, sess.InstanceLabel)
	if err != nil {
		return err
	}
	res := sess.Current()
	if res == nil {
		return b.finish(sess, ev)
	}

	in, err := client.InLibrary(ctx, res.ExternalID)
	if err != nil {
		b.logger.WithError(err).WithField("title", res.Title).Error("Library check failed")
	}
	if !in {
		b.sessions.Clear(ev.ChatID)
		return b.sayf(ev.ChatID, "messages.NoExist", map[string]string{
			"subjectWithArticle": b.subject(sess.MediaType),
		})
	}

	if res.Poster != "" {
		if id, err := b.gw.SendPhoto(ev.ChatID, res.Poster); err == nil {
			sess.PhotoMsgID = id
		}
	}

	rows := []KeyboardRow{
		{{Label: b.tr.T("Delete"), Data: "delete"}},
		{{Label: b.tr.T("StopDelete"), Data: "stop"}},
		{{Label: b.tr.T("New"), Data: "new"}},
	}
	question := b.tr.Tf("messages.ThisDelete", map[string]string{
		"subjectWithArticle": b.subject(sess.MediaType),
	})
	sess.State = session.StateAwaitDeleteOption
	return b.renderMenu(sess, ev, question, rows)
}

func (b *Bot) consumeDeleteOption(ctx context.Context, sess *session.Session, ev Event) error {
	switch ev.CallbackData {
	case "delete":
		return b.commitDelete(ctx, sess, ev)
	case "new":
		return b.restart(ctx, sess, ev)
	case "stop":
		return b.finish(sess, ev)
	}
	return nil
}

func (b *Bot) commitDelete(ctx context.Context, sess *session.Session, ev Event) error {
	client, err := b.registry.Client(sess.MediaType, sess.InstanceLabel)
	if err != nil {
		return err
	}
	res := sess.Current()
	if res == nil {
		return b.finish(sess, ev)
	}
	vars := map[string]string{"subjectWithArticle": b.subject(sess.MediaType)}

	if err := client.Remove(ctx, res.ExternalID); err != nil {
		b.logger.WithError(err).WithField("title", res.Title).Error("Delete failed")
		return b.endAdd(sess, ev, "messages.DeleteFailed", vars)
	}
	return b.endAdd(sess, ev, "messages.DeleteSuccess", vars)
}
