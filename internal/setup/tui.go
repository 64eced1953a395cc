package setup

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/presalebot/internal/entity"
	"github.com/vadiminshakov/presalebot/internal/registry"
	"github.com/vadiminshakov/presalebot/internal/services/purchase"
	"github.com/vadiminshakov/presalebot/internal/services/quote"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// Client is the slice of the application the wizard drives.
type Client interface {
	Snapshot() entity.ChainSnapshot
	Chain() registry.Chain
	BuyToken(ctx context.Context, amount decimal.Decimal, payToken entity.Token) purchase.Result
	UnlockToken(ctx context.Context)
	Busy() bool
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func header(chain registry.Chain) {
	clearScreen()
	fmt.Println(headerStyle.Render(fmt.Sprintf("%s PRESALE — %s", chain.SaleToken.Symbol, chain.Name)))
}

func printSummary(snap entity.ChainSnapshot, chain registry.Chain) {
	status := "CLOSED (unlock only)"
	if snap.SaleStatus {
		status = "OPEN"
	}
	sold := snap.TotalTokensSold.Add(chain.ExtraSoldAmount)
	pct := quote.SoldPercentage(sold, snap.TotalTokensForSale)

	fmt.Println(stepStyle.Render("SALE STATE"))
	fmt.Printf("  status: %s\n", status)
	fmt.Printf("  sold:   %s / %s (%s%%)\n",
		sold.Round(2), snap.TotalTokensForSale.Round(2), pct.Round(2))
	if price, ok := snap.Prices[chain.DisplaySymbol]; ok {
		fmt.Printf("  price:  %s %s per %s\n", price, chain.DisplaySymbol, chain.SaleToken.Symbol)
	}
	fmt.Printf("  locked: %s %s\n", snap.LockedAmount.Round(2), chain.SaleToken.Symbol)
	if len(snap.Balances) > 0 {
		fmt.Println(stepStyle.Render("WALLET"))
		for _, token := range chain.PaymentTokens {
			if bal, ok := snap.Balances[token.Symbol]; ok {
				fmt.Printf("  %-6s %s\n", token.Symbol, bal.Round(6))
			}
		}
	}
	fmt.Println()
}

// RunWizard loops the interactive purchase flow until the user exits or
// the context is cancelled.
func RunWizard(ctx context.Context, client Client) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		chain := client.Chain()
		snap := client.Snapshot()

		header(chain)
		printSummary(snap, chain)

		var action string
		options := []huh.Option[string]{}
		if snap.SaleStatus {
			options = append(options, huh.NewOption("Buy "+chain.SaleToken.Symbol, "buy"))
		} else if snap.LockedAmount.IsPositive() {
			options = append(options, huh.NewOption("Unlock purchased tokens", "unlock"))
		}
		options = append(options,
			huh.NewOption("Refresh view", "refresh"),
			huh.NewOption("Exit", "exit"),
		)

		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("What next?").
					Options(options...).
					Value(&action),
			),
		).Run()
		if err != nil {
			return err
		}

		switch action {
		case "buy":
			if err := runBuy(ctx, client, chain); err != nil {
				return err
			}
		case "unlock":
			client.UnlockToken(ctx)
			pause()
		case "refresh":
			continue
		case "exit":
			return nil
		}
	}
}

func runBuy(ctx context.Context, client Client, chain registry.Chain) error {
	snap := client.Snapshot()

	tokenOptions := make([]huh.Option[string], 0, len(chain.PaymentTokens))
	for _, token := range chain.PaymentTokens {
		tokenOptions = append(tokenOptions, huh.NewOption(token.Symbol+" — "+token.Name, token.Symbol))
	}

	var paySymbol string
	var amountStr string

	header(chain)
	fmt.Println(stepStyle.Render("STEP 1: PAYMENT TOKEN"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Pay with").
				Options(tokenOptions...).
				Value(&paySymbol),
		),
	).Run()
	if err != nil {
		return err
	}

	var payToken entity.Token
	for _, token := range chain.PaymentTokens {
		if token.Symbol == paySymbol {
			payToken = token
		}
	}

	fmt.Println(stepStyle.Render("STEP 2: AMOUNT"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Amount in %s", paySymbol)).
				Description("Positive decimal, e.g. 100 or 0.5").
				Value(&amountStr).
				Validate(func(s string) error {
					v, err := decimal.NewFromString(s)
					if err != nil {
						return fmt.Errorf("not a number")
					}
					if !v.IsPositive() {
						return fmt.Errorf("amount must be positive")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return err
	}
	amount = quote.FixedNumber(amount, quote.PayPrecision)

	receive, priceKnown := quote.ConvertFromPay(amount, paySymbol, snap.Prices)
	insufficient := quote.InsufficientBalance(amountStr, paySymbol, snap.Balances)

	fmt.Println(stepStyle.Render("QUOTE"))
	fmt.Printf("  pay:     %s %s\n", amount, paySymbol)
	if priceKnown {
		fmt.Printf("  receive: %s %s\n", receive, chain.SaleToken.Symbol)
	} else {
		fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("  receive: price not available yet"))
	}
	if insufficient {
		fmt.Println(errorStyle.Render("  insufficient balance — the transaction would fail"))
	}

	var confirm bool
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Submit purchase?").
				Affirmative("Buy").
				Negative("Cancel").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm || insufficient {
		return nil
	}

	result := client.BuyToken(ctx, amount, payToken)
	if result.Success && result.TxHash != nil {
		fmt.Printf("  tx: %s\n", result.TxHash.Hex())
	}
	pause()
	return nil
}

func pause() {
	fmt.Print("press enter to continue…")
	fmt.Scanln()
}
