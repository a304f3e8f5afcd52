package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"chessduel/internal/board"
	"chessduel/internal/core"
	"chessduel/internal/game"
	"chessduel/internal/service"
	"chessduel/internal/testutil"
)

func newProcessor(t *testing.T) *Processor {
	t.Helper()
	svc := service.New(nil, []byte("dev-secret-minimum-32-characters-long"))
	p := New(svc)
	t.Cleanup(func() { p.Close() })
	return p
}

func createGame(t *testing.T, p *Processor, fen string) core.CreateGameResponse {
	t.Helper()
	resp := p.Execute(NewCreateGameCommand(core.CreateGameRequest{FEN: fen}))
	testutil.True(t, resp.Success, resp.Error)
	return resp.Data.(core.CreateGameResponse)
}

func errorCode(resp ProcessorResponse) string {
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}

func TestCreateGame(t *testing.T) {
	p := newProcessor(t)

	created := createGame(t, p, "")
	testutil.Equal(t, created.State, "ongoing")
	testutil.Equal(t, created.Turn, "w")
	testutil.True(t, created.Tokens.White != "" && created.Tokens.Black != "")
	testutil.True(t, created.Tokens.White != created.Tokens.Black)
	testutil.Equal(t, created.FEN, board.StartingFEN)

	resp := p.Execute(NewCreateGameCommand(core.CreateGameRequest{FEN: "8/8/8/8 w - - 0 1"}))
	testutil.Equal(t, errorCode(resp), core.ErrInvalidFEN)

	resp = p.Execute(NewCreateGameCommand(core.CreateGameRequest{FEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -\x00 0 1"}))
	testutil.Equal(t, errorCode(resp), core.ErrInvalidFEN)

	// A position that is already mate is created finished.
	mated := createGame(t, p, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	testutil.Equal(t, mated.State, "black wins")
	testutil.Equal(t, mated.GameOver, []string{"checkmate"})
}

func TestMakeMove(t *testing.T) {
	p := newProcessor(t)
	id := createGame(t, p, "").GameID

	resp := p.Execute(NewMakeMoveCommand(id, board.White, core.MoveRequest{Move: "e2e4"}))
	testutil.True(t, resp.Success, resp.Error)
	g := resp.Data.(core.GameResponse)
	testutil.Equal(t, g.Moves, []string{"e2-e4"})
	testutil.Equal(t, g.Turn, "b")
	testutil.Equal(t, g.LastMove.Move, "e2-e4")
	testutil.Equal(t, g.LastMove.PlayerColor, "w")
	testutil.Equal(t, g.Selected, "")

	tests := []struct {
		name string
		seat board.Color
		move string
		code string
	}{
		{"wrong seat", board.White, "e7e5", core.ErrNotYourTurn},
		{"illegal", board.Black, "e7e4", core.ErrInvalidMove},
		{"empty origin", board.Black, "e5e4", core.ErrInvalidMove},
		{"bad promotion", board.Black, "e7e5k", core.ErrInvalidMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := p.Execute(NewMakeMoveCommand(id, tt.seat, core.MoveRequest{Move: tt.move}))
			testutil.Equal(t, errorCode(resp), tt.code)
		})
	}

	resp = p.Execute(NewMakeMoveCommand("missing", board.White, core.MoveRequest{Move: "e2e4"}))
	testutil.Equal(t, errorCode(resp), core.ErrGameNotFound)
}

func TestPromotionThroughActions(t *testing.T) {
	p := newProcessor(t)
	id := createGame(t, p, "4k3/P7/8/8/8/8/8/4K3 w - - 0 1").GameID

	resp := p.Execute(NewMakeMoveCommand(id, board.White, core.MoveRequest{Move: "a7a8"}))
	testutil.Equal(t, errorCode(resp), core.ErrInvalidMove)

	a7, a8 := board.MustSquare("a7"), board.MustSquare("a8")
	resp = p.Execute(NewActCommand(id, board.White, []game.Action{
		{Kind: game.SquareChosen, Square: a7},
		{Kind: game.SquareChosen, Square: a8},
	}))
	testutil.True(t, resp.Success, resp.Error)
	g := resp.Data.(core.GameResponse)
	testutil.Equal(t, g.State, "paused")
	testutil.Equal(t, g.Pending.Origin, "a7")
	testutil.Equal(t, g.Pending.Target, "a8")

	// Moves are refused until the piece is chosen.
	resp = p.Execute(NewMakeMoveCommand(id, board.White, core.MoveRequest{Move: "e1e2"}))
	testutil.Equal(t, errorCode(resp), core.ErrInvalidAction)

	resp = p.Execute(NewActCommand(id, board.White, []game.Action{{Kind: game.PromotionPieceChosen, Piece: board.Queen}}))
	testutil.True(t, resp.Success, resp.Error)
	g = resp.Data.(core.GameResponse)
	testutil.Equal(t, g.Moves, []string{"a7-a8=Q+"})
	testutil.True(t, g.Check)
	testutil.Equal(t, g.Pending == nil, true)

	resp = p.Execute(NewActCommand(id, board.Black, []game.Action{{Kind: game.ClaimDraw}}))
	testutil.Equal(t, errorCode(resp), core.ErrInvalidAction)

	resp = p.Execute(NewActCommand(id, board.Black, nil))
	testutil.Equal(t, errorCode(resp), core.ErrInvalidRequest)
}

func TestBoardLegalMovesAndExport(t *testing.T) {
	p := newProcessor(t)
	id := createGame(t, p, "").GameID

	resp := p.Execute(NewGetBoardCommand(id))
	testutil.True(t, resp.Success, resp.Error)
	b := resp.Data.(core.BoardResponse)
	testutil.Equal(t, b.FEN, board.StartingFEN)
	testutil.True(t, len(b.Board) > 0)

	resp = p.Execute(NewLegalMovesCommand(id, board.MustSquare("g1")))
	testutil.True(t, resp.Success, resp.Error)
	lm := resp.Data.(core.LegalMovesResponse)
	testutil.Equal(t, lm.Moves, map[string]string{"f3": "quiet", "h3": "quiet"})

	resp = p.Execute(NewLegalMovesCommand(id, board.NoSquare))
	testutil.Equal(t, errorCode(resp), core.ErrInvalidRequest)

	p.Execute(NewMakeMoveCommand(id, board.White, core.MoveRequest{Move: "d2d4"}))
	resp = p.Execute(NewExportGameCommand(id))
	testutil.True(t, resp.Success, resp.Error)
	data, err := json.Marshal(resp.Data)
	testutil.NoError(t, err)

	resp = p.Execute(NewImportGameCommand(core.ImportGameRequest{Position: data}))
	testutil.True(t, resp.Success, resp.Error)
	imported := resp.Data.(core.CreateGameResponse)
	testutil.True(t, imported.GameID != id)
	testutil.Equal(t, imported.Moves, []string{"d2-d4"})
	testutil.Equal(t, imported.Turn, "b")

	resp = p.Execute(NewImportGameCommand(core.ImportGameRequest{Position: json.RawMessage(`{"placement":"8/8"}`)}))
	testutil.Equal(t, errorCode(resp), core.ErrInvalidSnapshot)
}

func TestDeleteGame(t *testing.T) {
	p := newProcessor(t)
	id := createGame(t, p, "").GameID

	testutil.True(t, p.Execute(NewDeleteGameCommand(id)).Success)
	testutil.Equal(t, errorCode(p.Execute(NewGetGameCommand(id))), core.ErrGameNotFound)
	testutil.Equal(t, errorCode(p.Execute(NewDeleteGameCommand(id))), core.ErrGameNotFound)
}

func TestSubmitRunsOnQueue(t *testing.T) {
	p := newProcessor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := p.Submit(ctx, NewCreateGameCommand(core.CreateGameRequest{}))
	testutil.True(t, resp.Success, resp.Error)
	id := resp.Data.(core.CreateGameResponse).GameID

	resp = p.Submit(ctx, NewGetGameCommand(id))
	testutil.True(t, resp.Success, resp.Error)
	testutil.Equal(t, resp.Data.(core.GameResponse).GameID, id)
}

func TestQueueFullAndShutdown(t *testing.T) {
	release := make(chan struct{})
	q := NewCommandQueue(1, 1, func(Command) ProcessorResponse {
		<-release
		return ProcessorResponse{Success: true}
	})

	first := make(chan ProcessorResponse, 1)
	testutil.NoError(t, q.Submit(CommandTask{Response: first}))
	// Wait for the worker to take the first task so the backlog is empty.
	deadline := time.Now().Add(2 * time.Second)
	for len(q.tasks) > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	testutil.NoError(t, q.Submit(CommandTask{Response: make(chan ProcessorResponse, 1)}))
	testutil.ErrorIs(t, q.Submit(CommandTask{Response: make(chan ProcessorResponse, 1)}), ErrQueueFull)

	close(release)
	select {
	case resp := <-first:
		testutil.True(t, resp.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("task not executed")
	}

	testutil.NoError(t, q.Shutdown(time.Second))
	testutil.ErrorIs(t, q.Submit(CommandTask{}), ErrQueueShutdown)
	_, err := q.Do(context.Background(), Command{})
	testutil.ErrorIs(t, err, ErrQueueShutdown)
}
