// Interactive setup for the harvest bot: collects farm credentials,
// browser profile and store coordinate and writes the config.yaml the
// cbot binary reads.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Dimah98/CBot/internal/config"
)

var (
	app   *tview.Application
	pages *tview.Pages
)

func main() {
	configPath := flag.String("config", "config.yaml", "where to write the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Fresh setup: start from defaults.
		cfg = config.Defaults()
	}

	app = tview.NewApplication()
	pages = tview.NewPages()

	showForm(*configPath, cfg)

	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEsc {
			app.Stop()
			return nil
		}
		return ev
	})

	if err := app.SetRoot(pages, true).Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func showForm(configPath string, cfg config.Config) {
	header := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText(`[yellow]Sunflower Land Harvest Bot Setup[white]

Fill in the farm credentials and store coordinate, then save.
(Esc quits without saving)`)

	form := tview.NewForm().
		AddInputField("Farm ID", cfg.Farm.ID, 40, nil, func(text string) {
			cfg.Farm.ID = text
		}).
		AddInputField("API key", cfg.Farm.APIKey, 40, nil, func(text string) {
			cfg.Farm.APIKey = text
		}).
		AddInputField("Browser profile dir", cfg.Browser.ProfileDir, 40, nil, func(text string) {
			cfg.Browser.ProfileDir = text
		}).
		AddInputField("Store X", strconv.Itoa(cfg.Store.X), 10, acceptInt, func(text string) {
			cfg.Store.X, _ = strconv.Atoi(text)
		}).
		AddInputField("Store Y", strconv.Itoa(cfg.Store.Y), 10, acceptInt, func(text string) {
			cfg.Store.Y, _ = strconv.Atoi(text)
		}).
		AddInputField("History DB (empty disables)", cfg.History.Path, 40, nil, func(text string) {
			cfg.History.Path = text
		})

	form.AddButton("Save", func() {
		if cfg.Farm.ID == "" || cfg.Farm.APIKey == "" || cfg.Browser.ProfileDir == "" {
			showModal("Farm ID, API key and profile dir are all required", "form")
			return
		}
		if err := config.Save(configPath, cfg); err != nil {
			showModal(fmt.Sprintf("Failed to write %s: %v", configPath, err), "form")
			return
		}
		showDone(configPath)
	})
	form.AddButton("Quit", func() {
		app.Stop()
	})

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewBox(), 0, 1, false).
		AddItem(header, 5, 0, false).
		AddItem(form, 0, 4, true).
		AddItem(tview.NewBox(), 0, 1, false)

	pages.AddPage("form", flex, true, true)
	pages.SwitchToPage("form")
}

func showDone(configPath string) {
	text := fmt.Sprintf(`[green]Saved %s[white]

Next steps:
1. Log in to the game once in the bot's profile so the session sticks
2. Run: cbot -config %s`, configPath, configPath)

	done := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText(text)

	btn := tview.NewButton("[Exit]").SetSelectedFunc(func() {
		app.Stop()
	})

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewBox(), 0, 2, false).
		AddItem(done, 6, 0, false).
		AddItem(btn, 1, 0, true).
		AddItem(tview.NewBox(), 0, 2, false)

	pages.AddPage("done", flex, true, true)
	pages.SwitchToPage("done")
}

func showModal(msg, backTo string) {
	modal := tview.NewModal().
		SetText(msg).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			pages.RemovePage("error")
			pages.SwitchToPage(backTo)
		})
	pages.AddPage("error", modal, true, true)
}

func acceptInt(text string, _ rune) bool {
	if text == "" || text == "-" {
		return true
	}
	_, err := strconv.Atoi(text)
	return err == nil
}
