// Command answer-demo is an interactive showcase of the answer engine: it
// seeds a throwaway knowledge base with typical 1C helpdesk questions and
// answers queries from stdin, printing the tier and confidence of every
// match. Useful for demos and for eyeballing matcher behavior on live typos.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/onec-assist/answer-engine/internal/cache"
	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/feedback"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
)

var seedEntries = []struct {
	question string
	answer   string
	source   storage.Source
}{
	{"Как создать накладную?", "Откройте раздел Продажи → Реализация (акты, накладные) и нажмите Создать.", storage.SourceManual},
	{"Где посмотреть отчет о прибылях и убытках?", "Раздел Отчеты → Стандартные отчеты → Отчет о финансовых результатах.", storage.SourceManual},
	{"Как провести оплату поставщику?", "Раздел Банк и касса → Платежные поручения, создайте документ и проведите его.", storage.SourceManual},
	{"Как посмотреть остатки товаров на складе?", "Раздел Склад → Отчеты → Остатки товаров, укажите склад и дату.", storage.SourceManual},
	{"Накладные", "Раздел Накладные: создание, проведение и печать накладных.", storage.SourceButton},
	{"Платежи", "Раздел Платежи: платежные поручения, оплата поставщикам, выписки.", storage.SourceButton},
	{"Отчеты", "Раздел Отчеты: стандартные и регламентированные отчеты.", storage.SourceButton},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗ %v", err))
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	logger := observability.Nop()

	dir, err := os.MkdirTemp("", "answer-demo-*")
	if err != nil {
		return fmt.Errorf("create demo dir: %w", err)
	}
	defer os.RemoveAll(dir)

	backend := storage.NewJSONBackend(filepath.Join(dir, "kb.json"))
	store := storage.NewStore(ctx, backend, logger)
	fb := feedback.NewStore(filepath.Join(dir, "feedback.json"), 1000, logger)

	eng := engine.New(engine.Config{}, store, fb, cache.NewNopClient(), logger)
	defer eng.Close()

	for _, s := range seedEntries {
		if _, err := eng.AddEntry(ctx, s.question, s.answer, nil, s.source, nil); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	printBanner(len(seedEntries))
	repl(ctx, eng)
	return nil
}

func printBanner(n int) {
	color.New(color.FgCyan, color.Bold).Println("Демо движка ответов 1С-помощника")
	fmt.Printf("База знаний: %d записей. Вводите вопросы (с опечатками тоже).\n", n)
	fmt.Println("Команды: /learn вопрос | ответ    /stats    /exit")
	fmt.Println()
}

func repl(ctx context.Context, eng *engine.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	prompt := color.New(color.FgGreen, color.Bold)

	for {
		prompt.Print("вопрос> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return
		case line == "/stats":
			printStats(ctx, eng)
		case strings.HasPrefix(line, "/learn "):
			learn(ctx, eng, strings.TrimPrefix(line, "/learn "))
		default:
			answer(ctx, eng, line)
		}
		fmt.Println()
	}
}

func answer(ctx context.Context, eng *engine.Engine, q string) {
	res := eng.Answer(ctx, q)
	if !res.Matched() {
		color.Yellow("Ответ не найден. Попробуйте переформулировать или /learn.")
		return
	}
	color.New(color.FgWhite, color.Bold).Println(res.Entry.Answer)
	fmt.Printf("%s  %s\n",
		color.CyanString("уровень: %s", res.Tier),
		color.CyanString("уверенность: %.0f%%", res.Confidence*100))
	if res.Entry.Question != q {
		fmt.Println(color.HiBlackString("вопрос в базе: %s", res.Entry.Question))
	}
}

func learn(ctx context.Context, eng *engine.Engine, arg string) {
	q, a, ok := strings.Cut(arg, "|")
	q, a = strings.TrimSpace(q), strings.TrimSpace(a)
	if !ok || q == "" || a == "" {
		color.Red("формат: /learn вопрос | ответ")
		return
	}
	entry, err := eng.AddEntry(ctx, q, a, nil, storage.SourceManual, nil)
	if err != nil {
		color.Red("не удалось сохранить: %v", err)
		return
	}
	color.Green("✓ запись #%d сохранена", entry.ID)
}

func printStats(ctx context.Context, eng *engine.Engine) {
	st := eng.Stats(ctx)
	fmt.Printf("записей: %d  попаданий в кэш: %d\n", st.TotalEntries, st.Cache.Hits)
	for src, n := range st.BySource {
		fmt.Printf("  %s: %d\n", src, n)
	}
	fmt.Printf("совпадения: точных %d, нечетких %d, глобальных %d, по ключевым словам %d, промахов %d\n",
		st.Matches.Exact, st.Matches.IndexedFuzzy, st.Matches.GlobalFuzzy, st.Matches.Relaxed, st.Matches.None)
}
