package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chatarr/chatarr/internal/services/arr"
	"github.com/chatarr/chatarr/internal/session"
	"github.com/chatarr/chatarr/internal/utils"
)

// startAdd enters the add flow. mediaType may be empty when the entry
// command carried no hint; the type is then asked for after the title.
func (b *Bot) startAdd(ctx context.Context, sess *session.Session, ev Event, mediaType arr.MediaType) error {
	if mediaType != "" && !b.registry.Has(mediaType) {
		return b.say(ev.ChatID, "NotConfigured")
	}

	sess.Flow = session.FlowAdd
	sess.MediaType = mediaType
	sess.State = session.StateAwaitTitle
	b.notifyAdmin(ev, "Notifications.Start", nil)
	return b.say(ev.ChatID, "Title")
}

// consumeTitle stores the search term. A media-type keyword in place
// of a title records the type and re-prompts instead.
func (b *Bot) consumeTitle(ctx context.Context, sess *session.Session, ev Event) error {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return b.finish(sess, ev)
	}

	if hinted := b.mediaTypeFromText(text); hinted != "" && b.registry.Has(hinted) {
		sess.MediaType = hinted
		return b.say(ev.ChatID, "Title")
	}

	sess.SearchTerm = text
	if sess.MediaType != "" {
		return b.selectInstance(ctx, sess, ev)
	}

	types := b.registry.Types()
	if len(types) == 1 {
		sess.MediaType = types[0]
		return b.selectInstance(ctx, sess, ev)
	}

	rows := make([]KeyboardRow, 0, len(types))
	for _, t := range types {
		rows = append(rows, KeyboardRow{{Label: b.typeLabel(t), Data: "type:" + string(t)}})
	}
	if sess.Flow == session.FlowDelete {
		sess.State = session.StateAwaitDeleteType
	} else {
		sess.State = session.StateAwaitType
	}
	_, err := b.gw.SendKeyboard(ev.ChatID, b.tr.T("What is this?"), rows)
	return err
}

// consumeType records the media-type choice, from a keyboard press or
// a typed keyword.
func (b *Bot) consumeType(ctx context.Context, sess *session.Session, ev Event) error {
	var chosen arr.MediaType
	if ev.IsCallback() {
		chosen = arr.MediaType(strings.TrimPrefix(ev.CallbackData, "type:"))
	} else {
		chosen = b.mediaTypeFromText(ev.Text)
	}
	if !b.registry.Has(chosen) {
		// Unrecognized choice, ask again.
		types := b.registry.Types()
		rows := make([]KeyboardRow, 0, len(types))
		for _, t := range types {
			rows = append(rows, KeyboardRow{{Label: b.typeLabel(t), Data: "type:" + string(t)}})
		}
		_, err := b.gw.SendKeyboard(ev.ChatID, b.tr.T("What is this?"), rows)
		return err
	}

	sess.MediaType = chosen
	return b.selectInstance(ctx, sess, ev)
}

// selectInstance picks the backend instance, asking only when more
// than one is configured for the media type.
func (b *Bot) selectInstance(ctx context.Context, sess *session.Session, ev Event) error {
	if b.arrConfig(sess.MediaType).AdminRestrictions && !b.isAdmin(ev) {
		b.sessions.Clear(ev.ChatID)
		return b.say(ev.ChatID, "NotAdmin")
	}

	labels := b.registry.Labels(sess.MediaType)
	if len(labels) <= 1 {
		sess.InstanceLabel = ""
		return b.search(ctx, sess, ev)
	}

	rows := make([]KeyboardRow, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, KeyboardRow{{Label: label, Data: "instance:" + label}})
	}
	if sess.Flow == session.FlowDelete {
		sess.State = session.StateAwaitDeleteInstance
	} else {
		sess.State = session.StateAwaitInstance
	}
	_, err := b.gw.SendKeyboard(ev.ChatID, b.tr.T("Which instance?"), rows)
	return err
}

func (b *Bot) consumeInstance(ctx context.Context, sess *session.Session, ev Event) error {
	label, ok := strings.CutPrefix(ev.CallbackData, "instance:")
	if !ok {
		return nil
	}
	sess.InstanceLabel = label
	return b.search(ctx, sess, ev)
}

// search runs the catalog lookup and presents the first result. Both
// an empty result set and a failed lookup end the conversation with
// the zero-results message.
func (b *Bot) search(ctx context.Context, sess *session.Session, ev Event) error {
	client, err := b.registry.Client(sess.MediaType, sess.InstanceLabel)
	if err != nil {
		return err
	}

	results, err := client.Search(ctx, sess.SearchTerm)
	if err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"service": sess.MediaType,
			"term":    sess.SearchTerm,
		}).Error("Search failed")
	}
	if len(results) == 0 {
		b.sessions.Clear(ev.ChatID)
		return b.sayf(ev.ChatID, "searchresults", map[string]string{"count": "0"})
	}

	sess.Results = results
	sess.Cursor = 0

	if sess.Flow == session.FlowDelete {
		return b.confirmDelete(ctx, sess, ev)
	}
	sess.State = session.StateAwaitOption
	return b.presentResult(sess, ev)
}

// presentResult renders the result card the cursor points at: a count
// and title message, a best-effort poster and the action menu. Repeat
// calls edit the previous card in place.
func (b *Bot) presentResult(sess *session.Session, ev Event) error {
	res := sess.Current()
	if res == nil {
		return b.finish(sess, ev)
	}

	caption := fmt.Sprintf("%s\n\n%s (%d)",
		b.tr.Tf("searchresults", map[string]string{"count": strconv.Itoa(len(sess.Results))}),
		res.Title, res.Year)
	if sess.TitleMsgID == 0 {
		id, err := b.gw.SendText(ev.ChatID, caption)
		if err != nil {
			return err
		}
		sess.TitleMsgID = id
	} else if err := b.gw.EditText(ev.ChatID, sess.TitleMsgID, caption); err != nil {
		return err
	}

	if res.Poster != "" {
		if sess.PhotoMsgID != 0 {
			b.gw.DeleteMessage(ev.ChatID, sess.PhotoMsgID)
			sess.PhotoMsgID = 0
		}
		if id, err := b.gw.SendPhoto(ev.ChatID, res.Poster); err == nil {
			sess.PhotoMsgID = id
		} else {
			b.logger.WithError(err).WithField("poster", res.Poster).Debug("Failed to send poster")
		}
	}

	rows := []KeyboardRow{
		{{Label: b.tr.T("Add"), Data: "add"}},
	}
	if !sess.AtLastResult() {
		rows = append(rows, KeyboardRow{{Label: b.tr.T("Next result"), Data: "next"}})
	}
	rows = append(rows,
		KeyboardRow{{Label: b.tr.T("New"), Data: "new"}},
		KeyboardRow{{Label: b.tr.T("Stop"), Data: "stop"}},
	)

	question := b.tr.Tf("messages.This", map[string]string{"subjectWithArticle": b.subject(sess.MediaType)})
	return b.renderMenu(sess, ev, question, rows)
}

// renderMenu sends the action menu or edits the existing one in place.
func (b *Bot) renderMenu(sess *session.Session, ev Event, text string, rows []KeyboardRow) error {
	if sess.MenuMsgID == 0 {
		id, err := b.gw.SendKeyboard(ev.ChatID, text, rows)
		if err != nil {
			return err
		}
		sess.MenuMsgID = id
		return nil
	}
	return b.gw.EditKeyboard(ev.ChatID, sess.MenuMsgID, text, rows)
}

func (b *Bot) consumeOption(ctx context.Context, sess *session.Session, ev Event) error {
	switch ev.CallbackData {
	case "add":
		return b.selectPath(ctx, sess, ev)
	case "next":
		if sess.Advance() {
			return b.presentResult(sess, ev)
		}
		return nil
	case "new":
		return b.restart(ctx, sess, ev)
	case "stop":
		return b.finish(sess, ev)
	}
	return nil
}

// selectPath lists the root folders, auto-selecting a single one.
func (b *Bot) selectPath(ctx context.Context, sess *session.Session, ev Event) error {
	client, err := b.registry.Client(sess.MediaType, sess.InstanceLabel)
	if err != nil {
		return err
	}
	folders, err := client.RootFolders(ctx)
	if err != nil || len(folders) == 0 {
		if err != nil {
			b.logger.WithError(err).WithField("service", sess.MediaType).Error("Failed to list root folders")
		}
		return b.failAdd(sess, ev)
	}

	if len(folders) == 1 {
		sess.Path = folders[0].Path
		return b.selectProfile(ctx, sess, ev)
	}

	sess.Paths = nil
	rows := make([]KeyboardRow, 0, len(folders))
	narrow := b.arrConfig(sess.MediaType).NarrowRootFolderNames
	for _, f := range folders {
		sess.Paths = append(sess.Paths, f.Path)
		label := f.Path
		if narrow {
			label = filepath.Base(f.Path)
		}
		label = fmt.Sprintf("%s (%s free)", label, utils.FormatBytes(f.FreeSpace))
		rows = append(rows, KeyboardRow{{Label: label, Data: "path:" + f.Path}})
	}
	sess.State = session.StateAwaitPath
	return b.renderMenu(sess, ev, b.tr.T("Select a path"), rows)
}

func (b *Bot) consumePath(ctx context.Context, sess *session.Session, ev Event) error {
	path, ok := strings.CutPrefix(ev.CallbackData, "path:")
	if !ok {
		// Stray callback, re-issue the path prompt.
		return b.selectPath(ctx, sess, ev)
	}
	sess.Path = path
	return b.selectProfile(ctx, sess, ev)
}

// selectProfile lists the quality profiles, auto-selecting a single
// one.
func (b *Bot) selectProfile(ctx context.Context, sess *session.Session, ev Event) error {
	client, err := b.registry.Client(sess.MediaType, sess.InstanceLabel)
	if err != nil {
		return err
	}
	profiles, err := client.QualityProfiles(ctx)
	if err != nil || len(profiles) == 0 {
		if err != nil {
			b.logger.WithError(err).WithField("service", sess.MediaType).Error("Failed to list quality profiles")
		}
		return b.failAdd(sess, ev)
	}

	if len(profiles) == 1 {
		sess.ProfileID = profiles[0].ID
		return b.afterProfile(ctx, sess, ev)
	}

	sess.ProfileIDs = nil
	rows := make([]KeyboardRow, 0, len(profiles))
	for _, p := range profiles {
		sess.ProfileIDs = append(sess.ProfileIDs, p.ID)
		rows = append(rows, KeyboardRow{{Label: p.Name, Data: "profile:" + strconv.FormatInt(p.ID, 10)}})
	}
	sess.State = session.StateAwaitProfile
	return b.renderMenu(sess, ev, b.tr.T("Select a quality"), rows)
}

func (b *Bot) consumeProfile(ctx context.Context, sess *session.Session, ev Event) error {
	raw, ok := strings.CutPrefix(ev.CallbackData, "profile:")
	if !ok {
		return b.selectProfile(ctx, sess, ev)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return b.selectProfile(ctx, sess, ev)
	}
	sess.ProfileID = id
	return b.afterProfile(ctx, sess, ev)
}

// afterProfile branches on media type: series pick seasons, everything
// else commits directly.
func (b *Bot) afterProfile(ctx context.Context, sess *session.Session, ev Event) error {
	if sess.MediaType == arr.MediaTypeSeries {
		return b.selectSeasons(ctx, sess, ev)
	}
	return b.commitAdd(ctx, sess, ev)
}

// selectSeasons fetches the season list and shows the toggle keyboard.
func (b *Bot) selectSeasons(ctx context.Context, sess *session.Session, ev Event) error {
	client, err := b.registry.Client(sess.MediaType, sess.InstanceLabel)
	if err != nil {
		return err
	}
	res := sess.Current()
	if res == nil {
		return b.finish(sess, ev)
	}

	seasons, err := client.Seasons(ctx, res.ExternalID)
	if err != nil {
		b.logger.WithError(err).WithField("title", res.Title).Error("Failed to fetch seasons")
		return b.failAdd(sess, ev)
	}

	sess.Seasons = nil
	for _, s := range seasons {
		sess.Seasons = append(sess.Seasons, s.SeasonNumber)
	}
	sess.SelectedSeasons = make(map[int]bool)
	sess.State = session.StateAwaitSeasons
	return b.renderSeasonKeyboard(sess, ev)
}

func (b *Bot) renderSeasonKeyboard(sess *session.Session, ev Event) error {
	rows := []KeyboardRow{
		{{Label: b.tr.T("Future and Selected seasons"), Data: "season:commit"}},
	}
	for _, number := range sess.Seasons {
		label := fmt.Sprintf("%s %d", b.tr.T("Season"), number)
		if sess.SelectedSeasons[number] {
			label += " ✅"
		}
		rows = append(rows, KeyboardRow{{Label: label, Data: "season:" + strconv.Itoa(number)}})
	}
	rows = append(rows, KeyboardRow{{Label: b.tr.T("Mark all seasons"), Data: "season:all"}})
	return b.renderMenu(sess, ev, b.tr.T("Select from which season"), rows)
}

func (b *Bot) consumeSeason(ctx context.Context, sess *session.Session, ev Event) error {
	payload, ok := strings.CutPrefix(ev.CallbackData, "season:")
	if !ok {
		return b.renderSeasonKeyboard(sess, ev)
	}
	switch payload {
	case "commit":
		return b.commitAdd(ctx, sess, ev)
	case "all":
		for _, number := range sess.Seasons {
			sess.SelectedSeasons[number] = true
		}
	default:
		number, err := strconv.Atoi(payload)
		if err != nil {
			return b.renderSeasonKeyboard(sess, ev)
		}
		sess.SelectedSeasons[number] = !sess.SelectedSeasons[number]
	}
	return b.renderSeasonKeyboard(sess, ev)
}

// commitAdd resolves tags, re-checks the library and sends the add.
// All three outcomes edit the menu message in place and end the
// conversation.
func (b *Bot) commitAdd(ctx context.Context, sess *session.Session, ev Event) error {
	client, err := b.registry.Client(sess.MediaType, sess.InstanceLabel)
	if err != nil {
		return err
	}
	res := sess.Current()
	if res == nil {
		return b.finish(sess, ev)
	}
	vars := map[string]string{"subjectWithArticle": b.subject(sess.MediaType)}
	notifyVars := map[string]string{
		"subjectWithArticle": b.subject(sess.MediaType),
		"title":              res.Title,
	}

	in, err := client.InLibrary(ctx, res.ExternalID)
	if err != nil {
		b.logger.WithError(err).WithField("title", res.Title).Error("Library check failed")
	}
	if in {
		b.notifyAdmin(ev, "Notifications.Exist", notifyVars)
		return b.endAdd(sess, ev, "messages.Exist", vars)
	}

	tags := b.resolveTags(ctx, client, ev)

	req := arr.AddRequest{
		ExternalID:       res.ExternalID,
		Path:             sess.Path,
		QualityProfileID: sess.ProfileID,
		TagIDs:           tags,
	}
	if sess.MediaType == arr.MediaTypeSeries {
		req.Seasons = sess.SeasonSelection()
	}

	if err := client.Add(ctx, req); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"service": sess.MediaType,
			"title":   res.Title,
		}).Error("Add failed")
		b.notifyAdmin(ev, "Notifications.AddFailed", notifyVars)
		return b.endAdd(sess, ev, "messages.AddFailed", vars)
	}

	b.notifyAdmin(ev, "Notifications.AddSuccess", notifyVars)
	return b.endAdd(sess, ev, "messages.AddSuccess", vars)
}

// resolveTags returns the tag ids to attach: the requester's chat-id
// tag when enabled (created on first use), otherwise the configured
// default tags that already exist on the backend.
func (b *Bot) resolveTags(ctx context.Context, client *arr.Client, ev Event) []int64 {
	arrCfg := b.arrConfig(client.MediaType())

	tags, err := client.Tags(ctx)
	if err != nil {
		b.logger.WithError(err).WithField("service", client.MediaType()).Warn("Failed to list tags")
		return nil
	}

	if arrCfg.AddRequesterIDTag {
		label := strconv.FormatInt(ev.ChatID, 10)
		for _, t := range tags {
			if t.Label == label {
				return []int64{t.ID}
			}
		}
		id, err := client.CreateTag(ctx, label)
		if err != nil {
			b.logger.WithError(err).WithField("label", label).Warn("Failed to create requester tag")
			return nil
		}
		return []int64{id}
	}

	var ids []int64
	for _, t := range tags {
		for _, wanted := range arrCfg.DefaultTags {
			if t.Label == wanted {
				ids = append(ids, t.ID)
			}
		}
	}
	return ids
}

// endAdd writes the outcome into the menu message and clears the
// session.
func (b *Bot) endAdd(sess *session.Session, ev Event, key string, vars map[string]string) error {
	text := b.tr.Tf(key, vars)
	var err error
	if sess.MenuMsgID != 0 {
		err = b.gw.EditText(ev.ChatID, sess.MenuMsgID, text)
	} else {
		_, err = b.gw.SendText(ev.ChatID, text)
	}
	b.sessions.Clear(ev.ChatID)
	return err
}

func (b *Bot) failAdd(sess *session.Session, ev Event) error {
	return b.endAdd(sess, ev, "messages.AddFailed", map[string]string{
		"subjectWithArticle": b.subject(sess.MediaType),
	})
}

func (b *Bot) typeLabel(mediaType arr.MediaType) string {
	switch mediaType {
	case arr.MediaTypeSeries:
		return b.tr.T("Series")
	case arr.MediaTypeMusic:
		return b.tr.T("Music")
	default:
		return b.tr.T("Movie")
	}
}
