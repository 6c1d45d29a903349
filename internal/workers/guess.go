package workers

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"nickandperla.net/smartserv/internal/web"
)

const (
	guessNumberKey    = "guess.number"
	guessRemainingKey = "guess.remaining"

	guessAttempts = 7
	guessLimit    = 100
)

// GuessWorker is a number guessing game. The secret number and the
// remaining attempts live in the session's persistent parameters.
type GuessWorker struct{}

// Process evaluates the guess parameter against the session's secret
// number and renders the game form.
func (w *GuessWorker) Process(ctx *web.Context) error {
	if err := ctx.SetMimeType("text/html"); err != nil {
		return err
	}

	number, remaining := w.loadState(ctx)

	message := ""
	if entry, ok := ctx.Parameter("guess"); ok {
		var over bool
		message, remaining, over = w.processEntry(entry, number, remaining)
		if over {
			ctx.RemovePersistentParameter(guessNumberKey)
			ctx.RemovePersistentParameter(guessRemainingKey)
		} else {
			ctx.SetPersistentParameter(guessRemainingKey, strconv.Itoa(remaining))
		}
		if !over {
			message = fmt.Sprintf("%s (%d attempts left)", message, remaining)
		}
	} else {
		message = fmt.Sprintf("(%d attempts left)", remaining)
	}

	return ctx.WriteString(guessForm(message))
}

// loadState reads the game state, starting a new round when none exists.
func (w *GuessWorker) loadState(ctx *web.Context) (number, remaining int) {
	if stored, ok := ctx.PersistentParameter(guessNumberKey); ok {
		number, _ = strconv.Atoi(stored)
		storedRemaining, _ := ctx.PersistentParameter(guessRemainingKey)
		remaining, _ = strconv.Atoi(storedRemaining)
		return number, remaining
	}

	number = rand.IntN(guessLimit) + 1
	remaining = guessAttempts
	ctx.SetPersistentParameter(guessNumberKey, strconv.Itoa(number))
	ctx.SetPersistentParameter(guessRemainingKey, strconv.Itoa(remaining))
	return number, remaining
}

func (w *GuessWorker) processEntry(entry string, number, remaining int) (message string, left int, over bool) {
	guess, err := strconv.Atoi(strings.TrimSpace(entry))
	if err != nil {
		return "Please enter a whole number.", remaining, false
	}

	if guess == number {
		return "Well done, you guessed it!", remaining, true
	}

	remaining--
	if remaining < 1 {
		return fmt.Sprintf("Out of attempts. The number was %d.", number), 0, true
	}
	if guess > number {
		return fmt.Sprintf("%d is too high.", guess), remaining, false
	}
	return fmt.Sprintf("%d is too low.", guess), remaining, false
}

func guessForm(message string) string {
	return "<html>\r\n" +
		"  <head>\r\n" +
		"    <title>Guess the number</title>\r\n" +
		"  </head>\r\n" +
		"  <body>\r\n" +
		fmt.Sprintf("    <h1>Guess the number [1-%d]</h1>\r\n", guessLimit) +
		"    <form action=\"/ext/GuessWorker\">\r\n" +
		"      What number am I thinking of? <input type=\"text\" name=\"guess\">" +
		" <font color=\"red\">" + message + "</font> <br>\r\n" +
		"      <input type=\"submit\">" +
		"    </form>" +
		"  </body>\r\n" +
		"</html>\r\n"
}
