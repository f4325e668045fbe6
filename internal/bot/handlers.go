package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/itabot/internal/analytics"
	"github.com/example/itabot/internal/excel"
	"github.com/example/itabot/internal/export"
	"github.com/example/itabot/internal/review"
	"github.com/example/itabot/internal/testsession"
	"github.com/example/itabot/pkg/models"
)

// handleAdd puts the chat into word-entry mode
func (b *Bot) handleAdd(chatID int64) {
	b.userStates[chatID] = userState{State: stateAddingWords, Timestamp: time.Now()}
	instructions := "📝 *Adding new words*\n\n" +
		"Send one word per line in this format:\n\n" +
		"```\n" +
		"english - italiano\n" +
		"english - italiano | chapter\n" +
		"```\n\n" +
		"Send /cancel to stop."
	b.replyMarkdown(chatID, instructions)
}

// handleWordList parses a pasted word list and stores each pair
func (b *Bot) handleWordList(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	added, skipped := 0, 0

	for _, line := range strings.Split(message.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		word, ok := parseWordLine(line)
		if !ok {
			skipped++
			continue
		}

		existing, err := b.store.Words.FindByEnglish(ctx, word.English)
		if err != nil {
			log.Printf("Error checking word %q: %v", word.English, err)
			skipped++
			continue
		}
		if existing != nil {
			skipped++
			continue
		}

		if b.sentences != nil {
			if sentences, err := b.sentences.ExampleSentences(ctx, word.English, word.Italian); err == nil {
				word.Sentences = sentences
			} else {
				log.Printf("Error generating sentences for %q: %v", word.English, err)
			}
		}

		if err := b.store.Words.Create(ctx, &word); err != nil {
			log.Printf("Error creating word %q: %v", word.English, err)
			skipped++
			continue
		}
		added++
	}

	delete(b.userStates, chatID)
	b.reply(chatID, fmt.Sprintf("Added %d word(s), skipped %d. Use /test to practice them.", added, skipped))
}

// parseWordLine parses "english - italiano | chapter" into a word
func parseWordLine(line string) (models.Word, bool) {
	chapter := ""
	if idx := strings.Index(line, "|"); idx >= 0 {
		chapter = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
	}
	parts := strings.SplitN(line, " - ", 2)
	if len(parts) != 2 {
		parts = strings.SplitN(line, "-", 2)
	}
	if len(parts) != 2 {
		return models.Word{}, false
	}
	english := strings.TrimSpace(parts[0])
	italian := strings.TrimSpace(parts[1])
	if english == "" || italian == "" {
		return models.Word{}, false
	}
	return models.Word{English: english, Italian: italian, Chapter: chapter}, true
}

// handleWords shows the word list grouped by chapter
func (b *Bot) handleWords(ctx context.Context, chatID int64) {
	words, err := b.store.Words.GetAll(ctx)
	if err != nil {
		log.Printf("Error loading words: %v", err)
		b.reply(chatID, "Could not load your words, please try again.")
		return
	}
	if len(words) == 0 {
		b.reply(chatID, "No words yet. Use /add to add your first words.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 %d word(s):\n", len(words))
	currentChapter := "\x00"
	shown := 0
	for _, word := range words {
		if shown == 50 {
			fmt.Fprintf(&sb, "\n… and %d more", len(words)-shown)
			break
		}
		if word.Chapter != currentChapter {
			currentChapter = word.Chapter
			title := currentChapter
			if title == "" {
				title = "uncategorized"
			}
			fmt.Fprintf(&sb, "\n%s\n", title)
		}
		fmt.Fprintf(&sb, "  %s - %s\n", word.English, word.Italian)
		shown++
	}
	b.reply(chatID, sb.String())
}

// handleChapters lists the chapters with their word counts
func (b *Bot) handleChapters(ctx context.Context, chatID int64) {
	chapters, err := b.store.Words.Chapters(ctx)
	if err != nil {
		log.Printf("Error loading chapters: %v", err)
		b.reply(chatID, "Could not load chapters, please try again.")
		return
	}
	if len(chapters) == 0 {
		b.reply(chatID, "No chapters yet. Add words with a chapter: english - italiano | chapter")
		return
	}

	var sb strings.Builder
	sb.WriteString("📖 Chapters:\n")
	for _, chapter := range chapters {
		words, err := b.store.Words.GetByChapter(ctx, chapter)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "  %s (%d words)\n", chapter, len(words))
	}
	b.reply(chatID, sb.String())
}

// handleTest starts a quiz session
func (b *Bot) handleTest(ctx context.Context, chatID int64, args string) {
	if _, running := b.quizzes[chatID]; running {
		b.reply(chatID, "A test is already running. Finish it or send /cancel.")
		return
	}

	count, chapters := b.parseTestArgs(args)
	params := models.TestParameters{
		Mode:         "multiple_choice",
		Chapters:     chapters,
		WordCount:    count,
		HintsAllowed: true,
	}

	session, err := b.tests.Start(ctx, params)
	if err != nil {
		log.Printf("Error starting test: %v", err)
		b.reply(chatID, "Could not start a test: add some words first with /add.")
		return
	}

	b.quizzes[chatID] = &quizState{Session: session}
	b.reply(chatID, fmt.Sprintf("Starting a %s test with %d question(s). In bocca al lupo!",
		session.Difficulty.Difficulty, len(session.Questions)))
	b.sendQuestion(chatID)
}

// sendQuestion shows the current question with answer buttons
func (b *Bot) sendQuestion(chatID int64) {
	quiz := b.quizzes[chatID]
	question := quiz.Session.Current()
	if question == nil {
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, option := range question.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(option, fmt.Sprintf("ans:%d", i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💡 Hint", "hint"),
	))

	number := len(quiz.Session.Answers) + 1
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Question %d/%d\n\nTranslate: %s",
		number, len(quiz.Session.Questions), question.Word.English))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	quiz.AskedAt = time.Now()
	quiz.Hinted = false
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending question to chat %d: %v", chatID, err)
	}
}

// handleCallback processes quiz button presses
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Callbacks for messages older than 48 hours arrive without the
	// originating message.
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	b.knownChats[chatID] = true

	// Acknowledge the press so the client stops the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Error answering callback: %v", err)
	}

	quiz, running := b.quizzes[chatID]
	if !running {
		b.reply(chatID, "No test is running. Start one with /test.")
		return
	}
	question := quiz.Session.Current()
	if question == nil {
		return
	}

	if query.Data == "hint" {
		quiz.Hinted = true
		hint := question.Word.Italian
		if len([]rune(hint)) > 1 {
			runes := []rune(hint)
			hint = string(runes[0]) + strings.Repeat("·", len(runes)-1)
		}
		b.reply(chatID, fmt.Sprintf("💡 It starts with: %s", hint))
		return
	}

	var chosen int
	if _, err := fmt.Sscanf(query.Data, "ans:%d", &chosen); err != nil {
		return
	}
	if chosen < 0 || chosen >= len(question.Options) {
		return
	}

	answer := testsession.Answer{
		Question:    *question,
		ChosenIndex: chosen,
		Correct:     chosen == question.CorrectIndex,
		TimeSpentMs: int(time.Since(quiz.AskedAt).Milliseconds()),
		UsedHint:    quiz.Hinted,
		AnsweredAt:  time.Now(),
	}
	if quiz.Hinted {
		answer.HintsCount = 1
	}
	quiz.Session.Answers = append(quiz.Session.Answers, answer)

	if answer.Correct {
		b.reply(chatID, "✅ Correct!")
	} else {
		b.reply(chatID, fmt.Sprintf("❌ Wrong: %s means %s", question.Word.English, question.Word.Italian))
	}

	if quiz.Session.Current() != nil {
		b.sendQuestion(chatID)
		return
	}
	b.finishQuiz(ctx, chatID)
}

// finishQuiz records the session and sends the summary
func (b *Bot) finishQuiz(ctx context.Context, chatID int64) {
	quiz := b.quizzes[chatID]
	delete(b.quizzes, chatID)

	item, err := b.tests.Finish(ctx, quiz.Session)
	if err != nil {
		log.Printf("Error saving test for chat %d: %v", chatID, err)
		b.reply(chatID, "Could not save the test results, please try again.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 Test finished: %d/%d correct (%d%%)\n", item.CorrectWords, item.TotalWords, item.Percentage)
	fmt.Fprintf(&sb, "Difficulty: %s\n", item.Difficulty)
	fmt.Fprintf(&sb, "Time: %s\n", formatDuration(item.TotalTime))
	if len(item.WrongWords) > 0 {
		fmt.Fprintf(&sb, "\nWords to review: %s", strings.Join(item.WrongWords, ", "))
	}
	b.reply(chatID, sb.String())
}

// handleStats sends the aggregated dashboard
func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	snap, err := b.loadSnapshot(ctx)
	if err != nil {
		log.Printf("Error loading state: %v", err)
		b.reply(chatID, "Could not load statistics, please try again.")
		return
	}
	agg := b.engine.Aggregate(snap)

	var sb strings.Builder
	sb.WriteString("📊 *Your statistics*\n\n")
	fmt.Fprintf(&sb, "Words: %d (%d practiced)\n", agg.TotalWords, agg.TrackedWords)
	fmt.Fprintf(&sb, "Tests completed: %d, average score %d%%\n", agg.TestsCompleted, agg.AverageScore)
	fmt.Fprintf(&sb, "Answers: %d, accuracy %d%%\n", agg.TotalAttempts, agg.OverallAccuracy)
	fmt.Fprintf(&sb, "Hints used: %d\n", agg.HintsUsed)
	fmt.Fprintf(&sb, "Streak: %d day(s)\n", agg.StreakDays)
	fmt.Fprintf(&sb, "Median answer time: %.1fs\n", float64(agg.TimePercentiles.P50)/1000)

	if len(agg.StatusDistribution) > 0 {
		sb.WriteString("\n*Word statuses*\n")
		for _, status := range analytics.AllStatuses {
			if count := agg.StatusDistribution[status]; count > 0 {
				fmt.Fprintf(&sb, "  %s: %d\n", status, count)
			}
		}
	}

	if len(agg.Chapters) > 0 {
		sb.WriteString("\n*Chapters*\n")
		names := make([]string, 0, len(agg.Chapters))
		for name := range agg.Chapters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			progress := agg.Chapters[name]
			fmt.Fprintf(&sb, "  %s: %d%% (%d/%d)\n", name, progress.Percentage, progress.Correct, progress.Total)
		}
	}

	sb.WriteString("\n*Last 7 days*\n")
	for _, day := range agg.Weekly {
		marker := "·"
		if day.Tests > 0 {
			marker = fmt.Sprintf("%d test(s), %d%%", day.Tests, day.Accuracy)
		}
		fmt.Fprintf(&sb, "  %s  %s\n", day.Date, marker)
	}

	if recent, err := b.store.History.GetRecent(ctx, b.config.RecentTests); err == nil && len(recent) > 0 {
		sb.WriteString("\n*Recent tests*\n")
		for _, test := range recent {
			fmt.Fprintf(&sb, "  %s  %d/%d (%d%%, %s)\n",
				test.Timestamp.Format("Jan 2"), test.CorrectWords, test.TotalWords, test.Percentage, test.Difficulty)
		}
	}

	b.replyMarkdown(chatID, sb.String())
}

// handleTrends sends the long-horizon projection
func (b *Bot) handleTrends(ctx context.Context, chatID int64) {
	snap, err := b.loadSnapshot(ctx)
	if err != nil {
		log.Printf("Error loading state: %v", err)
		b.reply(chatID, "Could not load trends, please try again.")
		return
	}
	trends := b.projector.Project(snap)

	if trends.Insufficient {
		b.reply(chatID, fmt.Sprintf("Not enough data yet: %s", trends.Reason))
		return
	}

	var sb strings.Builder
	sb.WriteString("📈 *Learning trends*\n\n")
	fmt.Fprintf(&sb, "This week: %s (%+.1f%%)\n%s\n\n", trends.Weekly.Direction, trends.Weekly.ChangePct, trends.Weekly.Rationale)
	fmt.Fprintf(&sb, "This month: %s (%+.1f%%)\n%s\n\n", trends.Monthly.Direction, trends.Monthly.ChangePct, trends.Monthly.Rationale)
	fmt.Fprintf(&sb, "Mastery: %d/%d words (%d%%)\n%s\n\n",
		trends.Mastery.MasteredWords, trends.Mastery.TrackedWords, trends.Mastery.MasteryPercentage, trends.Mastery.Rationale)
	fmt.Fprintf(&sb, "Suggested pace: %d session(s) per week\n%s\n", trends.Schedule.SessionsPerWeek, trends.Schedule.Rationale)

	if len(trends.Acceleration) > 0 {
		sb.WriteString("\n*Almost there*\n")
		for _, opp := range trends.Acceleration {
			fmt.Fprintf(&sb, "  %s (%s, %d%%): %s\n", opp.English, opp.Status, opp.Accuracy, opp.Rationale)
		}
	}
	b.replyMarkdown(chatID, sb.String())
}

// handleReview lists the words due for practice
func (b *Bot) handleReview(ctx context.Context, chatID int64) {
	performances, err := b.store.Performance.GetAll(ctx)
	if err != nil {
		log.Printf("Error loading performances: %v", err)
		b.reply(chatID, "Could not load review words, please try again.")
		return
	}

	now := time.Now().UTC()
	due := review.Due(review.Recommend(performances, now), now, b.config.ReviewLimit)
	if len(due) == 0 {
		b.reply(chatID, "Nothing due for review. Ottimo lavoro! 🎉")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔁 %d word(s) due for review:\n", len(due))
	for _, rec := range due {
		fmt.Fprintf(&sb, "  %s (%s)\n", rec.English, rec.Status)
	}
	sb.WriteString("\nStart a /test to practice them.")
	b.reply(chatID, sb.String())
}

// handleExport sends the full state as a JSON document, or the word
// list as a workbook when called as /export excel
func (b *Bot) handleExport(ctx context.Context, chatID int64, args string) {
	if strings.TrimSpace(args) == "excel" {
		b.exportWorkbook(ctx, chatID)
		return
	}

	state, err := b.store.LoadState(ctx)
	if err != nil {
		log.Printf("Error loading state: %v", err)
		b.reply(chatID, "Could not build the export, please try again.")
		return
	}

	doc := export.Assemble(state, time.Now().UTC())
	data, err := export.Marshal(doc)
	if err != nil {
		log.Printf("Error marshaling export: %v", err)
		b.reply(chatID, "Could not build the export, please try again.")
		return
	}

	file := tgbotapi.FileBytes{
		Name:  fmt.Sprintf("itabot-export-%s.json", time.Now().UTC().Format("2006-01-02")),
		Bytes: data,
	}
	document := tgbotapi.NewDocument(chatID, file)
	document.Caption = fmt.Sprintf("Export of %d word(s)", doc.Metadata.TotalWords)
	if _, err := b.api.Send(document); err != nil {
		log.Printf("Error sending export to chat %d: %v", chatID, err)
	}
}

// exportWorkbook sends the word list as an Excel file
func (b *Bot) exportWorkbook(ctx context.Context, chatID int64) {
	words, err := b.store.Words.GetAll(ctx)
	if err != nil {
		log.Printf("Error loading words: %v", err)
		b.reply(chatID, "Could not build the export, please try again.")
		return
	}
	data, err := excel.ExportWorkbook(words)
	if err != nil {
		log.Printf("Error building workbook: %v", err)
		b.reply(chatID, "Could not build the export, please try again.")
		return
	}

	file := tgbotapi.FileBytes{
		Name:  fmt.Sprintf("itabot-words-%s.xlsx", time.Now().UTC().Format("2006-01-02")),
		Bytes: data,
	}
	document := tgbotapi.NewDocument(chatID, file)
	document.Caption = fmt.Sprintf("%d word(s)", len(words))
	if _, err := b.api.Send(document); err != nil {
		log.Printf("Error sending workbook to chat %d: %v", chatID, err)
	}
}

// handleImport puts the chat into import mode
func (b *Bot) handleImport(chatID int64, args string) {
	mode := string(export.ModeMerge)
	if arg := strings.TrimSpace(args); arg != "" {
		if arg != string(export.ModeMerge) && arg != string(export.ModeOverwrite) {
			b.reply(chatID, "Usage: /import merge|overwrite (default merge)")
			return
		}
		mode = arg
	}
	b.userStates[chatID] = userState{State: stateAwaitingImport, Mode: mode, Timestamp: time.Now()}
	b.reply(chatID, fmt.Sprintf("Send the exported JSON file to import in %s mode, or /cancel.", mode))
}

// handleDocument routes an uploaded file to the JSON or workbook import
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	state, exists := b.userStates[chatID]
	if !exists {
		b.reply(chatID, "Use /import or /upload first, then send the file.")
		return
	}
	delete(b.userStates, chatID)

	data, err := b.downloadDocument(message.Document.FileID)
	if err != nil {
		log.Printf("Error downloading document: %v", err)
		b.reply(chatID, "Could not download the file, please try again.")
		return
	}

	switch state.State {
	case stateAwaitingImport:
		b.importDocument(ctx, chatID, data, export.Mode(state.Mode))
	case stateAwaitingWorkbook:
		b.importWorkbook(ctx, chatID, data, message.Document.FileName)
	default:
		b.reply(chatID, "Use /import or /upload first, then send the file.")
	}
}

// importDocument applies a JSON export to the local state
func (b *Bot) importDocument(ctx context.Context, chatID int64, data []byte, mode export.Mode) {
	doc, err := export.Parse(data)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("The file was rejected: %v", err))
		return
	}

	state, err := b.store.LoadState(ctx)
	if err != nil {
		log.Printf("Error loading state: %v", err)
		b.reply(chatID, "Could not load the current data, please try again.")
		return
	}

	merged, result, err := export.Apply(state, *doc, mode)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Import failed: %v", err))
		return
	}
	if err := b.store.ReplaceAll(ctx, merged); err != nil {
		log.Printf("Error saving import: %v", err)
		b.reply(chatID, "Could not save the imported data, please try again.")
		return
	}
	b.projector.Invalidate()

	b.reply(chatID, fmt.Sprintf("Import finished (%s): %d word(s), %d test(s), %d attempt(s) added, %d record(s) skipped.",
		result.Mode, result.WordsAdded, result.TestsAdded, result.AttemptsAdded, result.SkippedRecords))
}

// importWorkbook imports words from an Excel or CSV upload
func (b *Bot) importWorkbook(ctx context.Context, chatID int64, data []byte, filename string) {
	importer := excel.NewImporter(&b.store.Words)
	result, err := importer.Import(ctx, data, filename)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("The file was rejected: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Workbook imported: %d word(s) added, %d updated, %d skipped.",
		result.Added, result.Updated, result.Skipped))
}

// downloadDocument fetches an uploaded file from Telegram
func (b *Bot) downloadDocument(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %v", err)
	}
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// loadSnapshot reads the stored state into an aggregation snapshot
func (b *Bot) loadSnapshot(ctx context.Context) (analytics.Snapshot, error) {
	state, err := b.store.LoadState(ctx)
	if err != nil {
		return analytics.Snapshot{}, err
	}
	performances := make([]models.WordPerformance, 0, len(state.WordPerformance))
	for _, perf := range state.WordPerformance {
		performances = append(performances, perf)
	}
	return analytics.Snapshot{
		Words:        state.Words,
		Performances: performances,
		History:      state.TestHistory,
		Stats:        state.Statistics,
	}, nil
}

// formatDuration renders milliseconds as a compact duration
func formatDuration(ms int) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
