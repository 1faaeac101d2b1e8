package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	notificationModel "forum_client/internal/domain/notification/model"
	notificationService "forum_client/internal/domain/notification/service"
	pushModel "forum_client/internal/domain/push/model"
	topicModel "forum_client/internal/domain/topic/model"
	"forum_client/internal/pkg/optimistic"

	"go.uber.org/zap"
)

type command struct {
	usage string
	// serves 长驻命令, 启动本地状态服务且不限时
	serves bool
	run    func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":          {usage: "-u <username> [-p <password>]", run: cmdLogin},
		"login-oauth":    {usage: "<provider> <access-token>", run: cmdLoginOAuth},
		"logout":         {usage: "", run: cmdLogout},
		"whoami":         {usage: "", run: cmdWhoami},
		"reset-password": {usage: "<email>", run: cmdResetPassword},
		"feed":           {usage: "[-page n]", run: cmdFeed},
		"topic":          {usage: "<topic-id>", run: cmdTopic},
		"vote":           {usage: "<topic-id> up|down", run: cmdVote},
		"vote-comment":   {usage: "<topic-id> <comment-id> up|down", run: cmdVoteComment},
		"save":           {usage: "<topic-id>", run: cmdSave(true)},
		"unsave":         {usage: "<topic-id>", run: cmdSave(false)},
		"saved":          {usage: "", run: cmdSaved},
		"comment":        {usage: "[-parent id] <topic-id> <content>", run: cmdComment},
		"post":           {usage: "-title t -content c [-image path]...", run: cmdPost},
		"report":         {usage: "<topic-id> <reason>", run: cmdReport},
		"conversations":  {usage: "", run: cmdConversations},
		"start-chat":     {usage: "<username>", run: cmdStartChat},
		"messages":       {usage: "<conversation-id>", run: cmdMessages},
		"send":           {usage: "<conversation-id> <content>", run: cmdSend},
		"notifications":  {usage: "[-page n]", run: cmdNotifications},
		"read":           {usage: "<notification-id>", run: cmdRead},
		"theme":          {usage: "[light|dark|system]", run: cmdTheme},
		"watch":          {usage: "poll unread counts; press Enter to simulate app foreground", serves: true, run: cmdWatch},
	}
}

func parseFlags(name string, fs *flag.FlagSet, args []string, want int) ([]string, error) {
	if fs == nil {
		fs = flag.NewFlagSet(name, flag.ContinueOnError)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < want {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", name, want, fs.NArg())
	}
	return fs.Args(), nil
}

func parseVote(s string) (int, error) {
	switch strings.ToLower(s) {
	case "up", "1", "+1":
		return 1, nil
	case "down", "-1":
		return -1, nil
	}
	return 0, fmt.Errorf("vote must be up or down, got %q", s)
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (read from stdin when empty)")
	if _, err := parseFlags("login", fs, args, 0); err != nil {
		return err
	}
	if *password == "" {
		fmt.Fprint(a.out, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimSpace(line)
	}
	sess, err := a.services.Session.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", sess.User.Username)
	return nil
}

func cmdLoginOAuth(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("login-oauth", nil, args, 2)
	if err != nil {
		return err
	}
	sess, err := a.services.Session.LoginOAuth(ctx, rest[0], rest[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s via %s\n", sess.User.Username, rest[0])
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.services.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	sess := a.services.Session.Current()
	if !sess.LoggedIn {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s)\n", sess.User.Username, sess.User.DisplayName)
	return nil
}

func cmdResetPassword(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("reset-password", nil, args, 1)
	if err != nil {
		return err
	}
	return a.services.Session.RequestPasswordReset(ctx, rest[0])
}

func cmdFeed(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("feed", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	if _, err := parseFlags("feed", fs, args, 0); err != nil {
		return err
	}
	feed, err := a.services.Topic.LoadFeed(ctx, *page)
	if err != nil {
		return err
	}
	for _, t := range feed.Topics {
		printTopicLine(a, t)
	}
	if feed.HasMore {
		fmt.Fprintf(a.out, "-- more: forumctl feed -page %d\n", feed.Page+1)
	}
	return nil
}

func printTopicLine(a *app, t topicModel.Topic) {
	saved := " "
	if t.Saved {
		saved = "*"
	}
	fmt.Fprintf(a.out, "%s %-12s %+4d  %3d comments  %s (%s)\n", saved, t.ID, t.Score(), t.CommentCount, t.Title, t.Author)
}

func cmdTopic(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("topic", nil, args, 1)
	if err != nil {
		return err
	}
	t, err := a.services.Topic.LoadTopic(ctx, rest[0])
	if err != nil {
		return err
	}
	printTopicLine(a, t)
	if t.Content != "" {
		fmt.Fprintf(a.out, "\n%s\n\n", t.Content)
	}
	for _, u := range t.ImageURLs {
		fmt.Fprintf(a.out, "  [image] %s\n", u)
	}
	printComments(a, t.Comments, 0)
	return nil
}

func printComments(a *app, comments []topicModel.Comment, depth int) {
	for _, c := range comments {
		fmt.Fprintf(a.out, "%s%+d %s: %s [%s]\n", strings.Repeat("  ", depth), c.Score(), c.Author, c.Content, c.ID)
		printComments(a, c.Replies, depth+1)
	}
}

func cmdVote(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("vote", nil, args, 2)
	if err != nil {
		return err
	}
	value, err := parseVote(rest[1])
	if err != nil {
		return err
	}
	if _, err := a.services.Topic.LoadTopic(ctx, rest[0]); err != nil {
		return err
	}
	outcome, err := a.services.Topic.Vote(ctx, rest[0], value)
	if err != nil {
		return err
	}
	return printOutcome(a, outcome, func() {
		if t, ok := a.services.Topic.Topic(rest[0]); ok {
			printTopicLine(a, t)
		}
	})
}

func cmdVoteComment(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("vote-comment", nil, args, 3)
	if err != nil {
		return err
	}
	value, err := parseVote(rest[2])
	if err != nil {
		return err
	}
	if _, err := a.services.Topic.LoadTopic(ctx, rest[0]); err != nil {
		return err
	}
	outcome, err := a.services.Topic.VoteComment(ctx, rest[0], rest[1], value)
	if err != nil {
		return err
	}
	return printOutcome(a, outcome, nil)
}

func cmdSave(saved bool) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		rest, err := parseFlags("save", nil, args, 1)
		if err != nil {
			return err
		}
		if _, err := a.services.Topic.LoadTopic(ctx, rest[0]); err != nil {
			return err
		}
		var outcome optimistic.Outcome
		if saved {
			outcome, err = a.services.Topic.Save(ctx, rest[0])
		} else {
			outcome, err = a.services.Topic.Unsave(ctx, rest[0])
		}
		if err != nil {
			return err
		}
		return printOutcome(a, outcome, nil)
	}
}

// printOutcome 回滚时 reporter 已提示用户, 这里只返回非零退出码
func printOutcome(a *app, outcome optimistic.Outcome, onConfirmed func()) error {
	switch outcome {
	case optimistic.Confirmed:
		fmt.Fprintln(a.out, "ok")
		if onConfirmed != nil {
			onConfirmed()
		}
		return nil
	case optimistic.Discarded:
		a.log.Debug("response superseded by a newer mutation")
		return nil
	default:
		return errors.New("change was rolled back")
	}
}

func cmdSaved(ctx context.Context, a *app, _ []string) error {
	topics, err := a.services.Topic.SavedTopics(ctx)
	if err != nil {
		return err
	}
	for _, t := range topics {
		printTopicLine(a, t)
	}
	return nil
}

func cmdComment(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("comment", flag.ContinueOnError)
	parent := fs.String("parent", "", "reply to comment id")
	rest, err := parseFlags("comment", fs, args, 2)
	if err != nil {
		return err
	}
	if _, err := a.services.Topic.LoadTopic(ctx, rest[0]); err != nil {
		return err
	}
	c, err := a.services.Topic.AddComment(ctx, rest[0], *parent, strings.Join(rest[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "comment %s posted\n", c.ID)
	return nil
}

// stringsFlag 可重复的字符串参数
type stringsFlag []string

func (s *stringsFlag) String() string { return strings.Join(*s, ",") }

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdPost(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	title := fs.String("title", "", "topic title")
	content := fs.String("content", "", "topic body")
	var images stringsFlag
	fs.Var(&images, "image", "image file to upload, repeatable")
	if _, err := parseFlags("post", fs, args, 0); err != nil {
		return err
	}
	t, err := a.services.Topic.CreateTopic(ctx, *title, *content, images)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "topic %s created\n", t.ID)
	return nil
}

func cmdReport(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("report", nil, args, 2)
	if err != nil {
		return err
	}
	return a.services.Topic.Report(ctx, rest[0], strings.Join(rest[1:], " "))
}

func cmdConversations(ctx context.Context, a *app, _ []string) error {
	convs, err := a.services.Chat.Conversations(ctx)
	if err != nil {
		return err
	}
	for _, c := range convs {
		unread := ""
		if c.UnreadCount > 0 {
			unread = fmt.Sprintf(" (%d unread)", c.UnreadCount)
		}
		fmt.Fprintf(a.out, "%-12s %s%s: %s\n", c.ID, c.Participant, unread, c.LastMessage)
	}
	return nil
}

func cmdStartChat(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("start-chat", nil, args, 1)
	if err != nil {
		return err
	}
	c, err := a.services.Chat.StartConversation(ctx, rest[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "conversation %s with %s\n", c.ID, c.Participant)
	return nil
}

func cmdMessages(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("messages", nil, args, 1)
	if err != nil {
		return err
	}
	msgs, err := a.services.Chat.Messages(ctx, rest[0])
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Fprintf(a.out, "[%s] %s: %s\n", m.CreatedAt.Local().Format(time.DateTime), m.Sender, m.Content)
	}
	return nil
}

func cmdSend(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("send", nil, args, 2)
	if err != nil {
		return err
	}
	m, err := a.services.Chat.Send(ctx, rest[0], strings.Join(rest[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "message %s sent\n", m.ID)
	return nil
}

func cmdNotifications(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	if _, err := parseFlags("notifications", fs, args, 0); err != nil {
		return err
	}
	list, hasMore, err := a.services.Notification.List(ctx, *page)
	if err != nil {
		return err
	}
	for _, n := range list {
		mark := "*"
		if n.IsRead {
			mark = " "
		}
		fmt.Fprintf(a.out, "%s %-12s %-8s %s: %s\n", mark, n.ID, n.Type, n.Actor, n.Content)
	}
	if hasMore {
		fmt.Fprintf(a.out, "-- more: forumctl notifications -page %d\n", *page+1)
	}
	return nil
}

func cmdRead(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("read", nil, args, 1)
	if err != nil {
		return err
	}
	if err := a.services.Unread.RefreshNotifications(ctx); err != nil {
		a.log.Warn("refresh unread notifications failed", zap.Error(err))
	}
	if _, _, err := a.services.Notification.List(ctx, 1); err != nil {
		return err
	}
	outcome, err := a.services.Notification.MarkRead(ctx, rest[0])
	if err != nil {
		return err
	}
	return printOutcome(a, outcome, func() {
		fmt.Fprintf(a.out, "%d unread notifications\n", a.services.Unread.Counts().Notifications)
	})
}

func cmdTheme(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags("theme", nil, args, 0)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		if err := a.services.Preference.SetTheme(ctx, rest[0]); err != nil {
			return err
		}
	}
	theme, err := a.services.Preference.Theme(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, theme)
	return nil
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	if _, err := parseFlags("watch", nil, args, 0); err != nil {
		return err
	}
	unread := a.services.Unread

	countsSub := unread.Subscribe(func(c notificationModel.UnreadCounts) {
		fmt.Fprintf(a.out, "%s unread: chat=%d notifications=%d total=%d\n",
			time.Now().Format(time.TimeOnly), c.Chat, c.Notifications, c.Total())
	})
	defer countsSub.Close()
	pushSub := a.services.Push.Subscribe(func(st pushModel.State) {
		fmt.Fprintf(a.out, "push: %s\n", st)
	})
	defer pushSub.Close()

	if a.status != nil {
		if err := a.status.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.status.Shutdown(shutdownCtx); err != nil {
				a.log.Warn("status server shutdown failed", zap.Error(err))
			}
		}()
	}

	unread.Start(ctx)
	defer unread.Stop()

	// 回车模拟应用切回前台
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			unread.SetAppState(notificationService.Background)
			unread.SetAppState(notificationService.Foreground)
		}
	}()

	<-ctx.Done()
	fmt.Fprintln(a.out, "stopping")
	return nil
}
