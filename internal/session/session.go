package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/park285/Cheese-Battleship/internal/obslog"
	"go.uber.org/zap"
)

const exitNoticeTimeout = 2 * time.Second

// DirectP2P selects the mode that skips the lobby. AsHost is supplied by the
// caller instead of being derived from the connection method.
type DirectP2P struct {
	PlayerName string
	AsHost     bool
	HostAddr   string
}

type Options struct {
	Direct *DirectP2P
	Logger *zap.Logger
}

// Session drives one client from connection to exit. It is strictly
// sequential: a single goroutine owns the transport for the whole lifetime.
type Session struct {
	t      Transport
	ui     UI
	texts  Texts
	direct *DirectP2P
	logger *zap.Logger

	id       string
	player   string
	opponent string
	// starts is fixed at connection time: the joining player shoots first,
	// the waiting host second.
	starts bool
}

func New(t Transport, ui UI, texts Texts, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = obslog.L()
	}
	id := uuid.NewString()
	return &Session{
		t:      t,
		ui:     ui,
		texts:  texts,
		direct: opts.Direct,
		logger: logger.With(zap.String("session_id", id)),
		id:     id,
	}
}

func (s *Session) ID() string { return s.id }

// Run plays battles until a control signal ends the session, shows exactly one
// closing notice and releases the transport on every path. The returned error
// is non-nil only for OutcomeFailed.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	defer func() {
		if err := s.t.Close(); err != nil {
			s.logger.Debug("transport_close_error", zap.Error(err))
		}
	}()
	s.logger.Info("session_start", zap.Bool("direct_p2p", s.direct != nil))

	err := s.run(ctx)
	outcome := classify(err)
	s.conclude(outcome, err)
	s.logger.Info("session_end", zap.String("outcome", outcome.String()), zap.Error(err))
	if outcome == OutcomeFailed {
		return outcome, err
	}
	return outcome, nil
}

func (s *Session) run(ctx context.Context) error {
	if s.direct != nil {
		if err := s.establishDirect(ctx); err != nil {
			return err
		}
		s.player = s.direct.PlayerName
		s.starts = !s.direct.AsHost
	} else {
		name, err := s.connectToServer(ctx)
		if err != nil {
			return err
		}
		s.player = name
		isHost, err := s.establishGameConnection(ctx)
		if err != nil {
			return err
		}
		s.starts = !isHost
	}

	opponent, err := s.t.ExchangeNames(ctx, s.player)
	if err != nil {
		return err
	}
	s.opponent = opponent
	s.logger.Info("peer_connected", zap.String("player", s.player), zap.String("opponent", opponent), zap.Bool("starts", s.starts))
	s.ui.StartBattle(s.player, opponent)
	s.say("battle.introduce")

	for {
		if err := s.runBattle(ctx); err != nil {
			return err
		}
	}
}

func (s *Session) conclude(outcome Outcome, err error) {
	switch outcome {
	case OutcomeServerShutdown:
		s.say("title.server_shutdown")
	case OutcomeOpponentLeft:
		s.say("battle.opponent_left")
	case OutcomeLocalExit:
		s.informExit()
	default:
		s.ui.Message(s.texts.Text("battle.failure", map[string]any{"Opponent": s.opponentLabel(), "Error": err.Error()}))
		s.informExit()
	}
}

// informExit tells a connected peer we are leaving. The caller's context may
// already be cancelled by an interrupt, so the notice gets its own deadline.
func (s *Session) informExit() {
	if !s.t.Established() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), exitNoticeTimeout)
	defer cancel()
	if err := s.t.InformExit(ctx); err != nil {
		s.logger.Warn("inform_exit_error", zap.Error(err))
	}
}

func (s *Session) establishDirect(ctx context.Context) error {
	if s.direct.AsHost {
		s.say("title.waiting_for_peer")
		ok, err := s.t.WaitForConnection(ctx)
		if err != nil {
			return err
		}
		if !ok {
			s.say("title.direct_failure_host")
			return ErrLocalExit
		}
		return nil
	}
	if !s.t.ConnectToHost(ctx, s.direct.HostAddr) {
		s.ui.Message(s.texts.Text("title.direct_failure_join", map[string]any{"Addr": s.direct.HostAddr}))
		return ErrLocalExit
	}
	return nil
}

func (s *Session) connectToServer(ctx context.Context) (string, error) {
	for {
		name, addr, err := s.ui.Logon(ctx)
		if err != nil {
			return "", err
		}
		if s.t.ConnectToServer(ctx, addr) {
			s.logger.Info("lobby_connected", zap.String("addr", addr), zap.String("player", name))
			return name, nil
		}
		s.logger.Warn("lobby_connect_failed", zap.String("addr", addr))
		s.ui.Message(s.texts.Text("title.server_unreachable", map[string]any{"Addr": addr}))
		retry, err := s.ui.Confirm(ctx, s.texts.Text("title.retry_server", nil))
		if err != nil {
			return "", err
		}
		if !retry {
			return "", ErrLocalExit
		}
	}
}

// establishGameConnection loops until this client either joined a host or
// hosted a game that someone joined. It reports whether this client hosts.
func (s *Session) establishGameConnection(ctx context.Context) (bool, error) {
	for {
		hosts, err := s.t.AvailableHosts(ctx)
		if err != nil {
			return false, err
		}
		addr, err := s.ui.ChooseHost(ctx, hosts)
		if err != nil {
			return false, err
		}

		if addr != "" {
			if s.t.ConnectToHost(ctx, addr) {
				return false, nil
			}
			s.logger.Warn("join_failed", zap.String("addr", addr))
			s.say("title.launch_failure_join")
			continue
		}

		if s.t.RegisterAsHost(ctx, s.player) {
			s.say("title.waiting_for_peer")
			ok, err := s.t.WaitForConnection(ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		s.logger.Warn("host_failed", zap.String("player", s.player))
		s.say("title.launch_failure_host")
	}
}

func (s *Session) say(key string) {
	s.ui.Message(s.texts.Text(key, map[string]any{"Opponent": s.opponentLabel()}))
}

func (s *Session) opponentLabel() string {
	if s.opponent == "" {
		return "your opponent"
	}
	return s.opponent
}
