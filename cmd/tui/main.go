package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tickbot-go/internal/config"
)

func main() {
	config.LoadEnv()
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Tickbot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit paper session knobs")
		fmt.Println("3) Edit an instrument")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch paper bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editPaper(reader, cfg)
		case "3":
			editInstrument(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchPaper(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Feed: %s %v (tick %.4g, lot %.4g)\n", cfg.Exchange.Provider, cfg.Exchange.Symbols, cfg.Exchange.TickSize, cfg.Exchange.LotSize)
	fmt.Printf("Starting cash: %.2f | tick interval: %dms\n", cfg.Paper.StartingCash, cfg.Paper.TickIntervalMs)
	fmt.Printf("Per-trade notional cap: %.2f\n", cfg.Paper.MaxNotional)
	fmt.Printf("State backend: %s | journal: %s\n", cfg.State.Backend, cfg.Paper.JournalPath)
	for _, sym := range cfg.Symbols() {
		inst := cfg.Instruments[sym]
		exit := "none"
		if inst.Exit != nil {
			exit = fmt.Sprintf("%s %.2f", inst.Exit.Kind, inst.Exit.Value)
		}
		fmt.Printf("  %-18s %s/%s window=%d seed=%.1f entry=%s %.2f exit=%s limit=%d sizing=%s\n",
			sym, inst.Mode, inst.FairValue, inst.Window, inst.Seed, inst.Entry.Kind, inst.Entry.Value, exit, inst.Limit, inst.Sizing.Kind)
	}
}

func editPaper(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Paper Session ---")
	cfg.Paper.StartingCash = promptFloat(reader, "Starting cash", cfg.Paper.StartingCash)
	cfg.Paper.TickIntervalMs = int(promptFloat(reader, "Tick interval (ms)", float64(cfg.Paper.TickIntervalMs)))
	cfg.Paper.MaxNotional = promptFloat(reader, "Max notional per trade", cfg.Paper.MaxNotional)
}

func editInstrument(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Instrument ---")
	fmt.Printf("Instruments: %s\n", strings.Join(cfg.Symbols(), ", "))
	fmt.Print("Symbol: ")
	line, _ := reader.ReadString('\n')
	sym := strings.TrimSpace(line)
	inst, ok := cfg.Instruments[sym]
	if !ok {
		fmt.Println("unknown instrument")
		return
	}
	inst.Window = int(promptFloat(reader, "Window", float64(inst.Window)))
	inst.Seed = promptFloat(reader, "Seed / fixed fair value", inst.Seed)
	inst.Entry.Value = promptFloat(reader, "Entry band ("+inst.Entry.Kind+")", inst.Entry.Value)
	if inst.Exit != nil {
		inst.Exit.Value = promptFloat(reader, "Exit band ("+inst.Exit.Kind+")", inst.Exit.Value)
	}
	inst.Limit = int(promptFloat(reader, "Position limit", float64(inst.Limit)))
	inst.StopLoss = promptFloat(reader, "Stop loss (0 disables)", inst.StopLoss)
	inst.TrailingStop = promptPercent(reader, "Trailing stop (%)", inst.TrailingStop)
	cfg.Instruments[sym] = inst
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

func launchPaper(reader *bufio.Reader) {
	fmt.Println("Launching paper bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/paper")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	return filepath.Clean(config.Path())
}
