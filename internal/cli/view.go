package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"chessduel/internal/board"
	"chessduel/internal/engine"
	"chessduel/internal/game"
	"chessduel/internal/netplay"
)

// Terminal color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
)

type ColorTheme string

const (
	ThemeOff   ColorTheme = "off"
	ThemeBrown ColorTheme = "brown"
	ThemeGreen ColorTheme = "green"
	ThemeGray  ColorTheme = "gray"
)

type themeColors struct {
	lightBg  string
	darkBg   string
	markBg   string // selected square and move targets
	white    string
	black    string
	reset    string
	accent   string // prompts and headings
	warning  string
	positive string
}

var themes = map[ColorTheme]themeColors{
	ThemeOff: {},
	ThemeBrown: {
		lightBg:  "\033[48;5;230m", // Beige
		darkBg:   "\033[48;5;94m",  // Brown
		markBg:   "\033[48;5;221m", // Amber
		white:    "\033[97m",
		black:    "\033[30m",
		reset:    Reset,
		accent:   Cyan,
		warning:  Red,
		positive: Green,
	},
	ThemeGreen: {
		lightBg:  "\033[48;5;157m", // Light green
		darkBg:   "\033[48;5;22m",  // Dark green
		markBg:   "\033[48;5;186m", // Pale yellow
		white:    "\033[97m",
		black:    "\033[30m",
		reset:    Reset,
		accent:   Cyan,
		warning:  Red,
		positive: Green,
	},
	ThemeGray: {
		lightBg:  "\033[48;5;251m", // Light gray
		darkBg:   "\033[48;5;240m", // Dark gray
		markBg:   "\033[48;5;179m", // Tan
		white:    "\033[97m",
		black:    "\033[30m",
		reset:    Reset,
		accent:   Cyan,
		warning:  Red,
		positive: Green,
	},
}

// View renders games and messages to a terminal
type View struct {
	output  io.Writer
	theme   ColorTheme
	verbose bool
}

func NewView(output io.Writer, theme ColorTheme) *View {
	if _, ok := themes[theme]; !ok {
		theme = ThemeOff
	}
	return &View{output: output, theme: theme}
}

func (v *View) colors() themeColors { return themes[v.theme] }

func (v *View) SetTheme(theme ColorTheme) error {
	if _, ok := themes[theme]; !ok {
		return fmt.Errorf("invalid theme: %s (use: off, brown, green, gray)", theme)
	}
	v.theme = theme
	return nil
}

func (v *View) ToggleVerbose() bool {
	v.verbose = !v.verbose
	return v.verbose
}

func (v *View) ShowMessage(msg string) {
	fmt.Fprintln(v.output, msg)
}

func (v *View) ShowError(err error) {
	t := v.colors()
	fmt.Fprintf(v.output, "%sError: %v%s\n", t.warning, err, t.reset)
}

// Prompt returns the prompt for the current state of d
func (v *View) Prompt(d Driver) string {
	t := v.colors()
	g := d.Game()
	if g == nil {
		return t.accent + "waiting for host" + t.reset + " > "
	}

	var sb strings.Builder
	sb.WriteString(t.accent)
	if seat := d.Seat(); seat != board.NoColor {
		sb.WriteString(seat.String() + " ")
	}
	switch {
	case g.Position.IsOver():
		sb.WriteString("game over")
	case g.Pending != nil && g.Pending.Next == nil:
		sb.WriteString("promote to")
	case g.Pending != nil:
		sb.WriteString("claim draw?")
	default:
		sb.WriteString(fmt.Sprintf("[%s]", g.Position.SideToMove.Letter()))
	}
	sb.WriteString(t.reset + " > ")
	return sb.String()
}

// DisplayBoard draws the position from the seat's side, marking the
// selected piece and the squares it can move to.
func (v *View) DisplayBoard(g *game.Game, seat board.Color) {
	t := v.colors()
	p := g.Position

	ranks := []int{7, 6, 5, 4, 3, 2, 1, 0}
	files := []int{0, 1, 2, 3, 4, 5, 6, 7}
	if seat == board.Black {
		ranks = []int{0, 1, 2, 3, 4, 5, 6, 7}
		files = []int{7, 6, 5, 4, 3, 2, 1, 0}
	}

	var header strings.Builder
	header.WriteString("  ")
	for _, f := range files {
		header.WriteString(fmt.Sprintf("%c ", 'a'+f))
	}

	var sb strings.Builder
	sb.WriteString("\n" + header.String() + "\n")
	for _, r := range ranks {
		sb.WriteString(fmt.Sprintf("%d ", r+1))
		for _, f := range files {
			sq := board.SquareAt(f, r)
			piece, color := p.Board.At(sq)
			marked := sq == g.Origin || g.Moves.Kind(sq) != engine.NoMove

			if v.theme == ThemeOff {
				sb.WriteString(plainCell(piece, color, sq == g.Origin, marked))
				continue
			}

			bg := t.darkBg
			if (r+f)%2 == 1 {
				bg = t.lightBg
			}
			if marked {
				bg = t.markBg
			}
			if piece == board.Empty {
				sb.WriteString(fmt.Sprintf("%s  %s", bg, t.reset))
				continue
			}
			fg := t.black
			if color == board.White {
				fg = t.white
			}
			sb.WriteString(fmt.Sprintf("%s%s%c %s", bg, fg, glyph(piece, color), t.reset))
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	sb.WriteString(header.String() + "\n")

	v.ShowMessage(sb.String())
	v.showStatus(g)
}

// plainCell renders one square without colors: '<' after the selected piece,
// '*' on a square the selection can move to.
func plainCell(piece board.Piece, color board.Color, selected, marked bool) string {
	ch := byte('.')
	if piece != board.Empty {
		ch = glyph(piece, color)
	}
	switch {
	case selected:
		return string(ch) + "<"
	case marked && piece == board.Empty:
		return "* "
	case marked:
		return string(ch) + "*"
	default:
		return string(ch) + " "
	}
}

func glyph(piece board.Piece, color board.Color) byte {
	l := piece.Letter()
	if piece == board.Pawn {
		l = "P"
	}
	if color == board.Black {
		l = strings.ToLower(l)
	}
	return l[0]
}

// showStatus reports check, pauses and the outcome under the board
func (v *View) showStatus(g *game.Game) {
	t := v.colors()
	p := g.Position

	if rec, ok := p.LastMove(); ok {
		v.ShowMessage(fmt.Sprintf("Last move: %s (%s)", rec.Notation, rec.Mover))
	}
	if v.verbose {
		v.ShowMessage("FEN: " + p.FEN())
		if n := p.Repetitions[p.Key()]; n > 1 {
			v.ShowMessage(fmt.Sprintf("Position seen %d times", n))
		}
	}

	switch {
	case p.IsOver():
		v.ShowGameOver(g)
	case g.Pending != nil && g.Pending.Next == nil:
		v.ShowMessage(t.accent + "Choose a promotion piece: promote q|r|b|n" + t.reset)
	case g.Pending != nil:
		v.ShowMessage(fmt.Sprintf("%sThis move allows a draw claim (%s): claim or decline%s",
			t.accent, strings.Join(g.Pending.Reasons.List(), ", "), t.reset))
	default:
		if p.IsCheck {
			v.ShowMessage(t.warning + p.SideToMove.String() + " is in check" + t.reset)
		}
		if !p.AllowDraw.Empty() {
			v.ShowMessage(fmt.Sprintf("%sA draw may be claimed (%s): claim-now%s",
				t.accent, strings.Join(p.AllowDraw.List(), ", "), t.reset))
		}
	}
}

func (v *View) ShowGameOver(g *game.Game) {
	t := v.colors()
	v.ShowMessage(fmt.Sprintf("\n%sGame Over: %s (%s)%s",
		t.positive, g.State(), strings.Join(g.Position.GameOver.List(), ", "), t.reset))
	v.ShowMessage("Use 'undo', 'rematch' or 'new'.")
}

func (v *View) ShowRequests(seat board.Color, reqs []netplay.Request) {
	t := v.colors()
	for _, r := range reqs {
		if r.Requester == seat {
			v.ShowMessage(fmt.Sprintf("Waiting for the opponent to agree to %s", r.Type))
			continue
		}
		v.ShowMessage(fmt.Sprintf("%s%s asks for %s: type 'agree' to accept%s", t.accent, r.Requester, r.Type, t.reset))
	}
}

// ShowHistory lists the moves in numbered pairs
func (v *View) ShowHistory(p *engine.Position) {
	moves := p.Notations()
	start, number := 0, 1
	if p.StartingColor() == board.Black && len(moves) > 0 {
		v.ShowMessage(fmt.Sprintf("%d. ... | %s", number, moves[0]))
		start, number = 1, number+1
	}
	for i := start; i < len(moves); i += 2 {
		if i+1 < len(moves) {
			v.ShowMessage(fmt.Sprintf("%d. %s | %s", number, moves[i], moves[i+1]))
		} else {
			v.ShowMessage(fmt.Sprintf("%d. %s | ...", number, moves[i]))
		}
		number++
	}
	v.ShowMessage(fmt.Sprintf("Current FEN: %s", p.FEN()))
}

// ShowMoves lists the targets of the piece on sq
func (v *View) ShowMoves(sq board.Square, moves engine.Moves) {
	targets := moves.Targets()
	if len(targets) == 0 {
		v.ShowMessage(fmt.Sprintf("%s has no moves", sq))
		return
	}
	parts := make([]string, len(targets))
	for i, target := range targets {
		parts[i] = fmt.Sprintf("%s (%s)", target, moves.Kind(target))
	}
	v.ShowMessage(fmt.Sprintf("%s: %s", sq, strings.Join(parts, ", ")))
}

// ShowJSON prints v as indented JSON
func (v *View) ShowJSON(value any) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		v.ShowError(fmt.Errorf("formatting JSON: %w", err))
		return
	}
	v.ShowMessage(string(data))
}

func (v *View) ShowWelcome(d Driver) {
	t := v.colors()
	v.ShowMessage(t.accent + "Chess Duel" + t.reset)
	if seat := d.Seat(); seat != board.NoColor {
		v.ShowMessage(fmt.Sprintf("Networked game, you play %s.", seat))
	} else if d.Game() == nil {
		v.ShowMessage("Connected, waiting for the host to start the game.")
	} else {
		v.ShowMessage("Hotseat game, both players share this terminal.")
	}
	v.ShowMessage("Enter moves like e2e4 or e7e8q, or click squares with 'sel e2'. Type 'help' for commands.")
}
