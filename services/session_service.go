package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"arcadia/game"
	"arcadia/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewSessionService(db *gorm.DB, redis *redis.Client) *SessionService {
	return &SessionService{
		db:    db,
		redis: redis,
	}
}

type CreateSessionRequest struct {
	BoardID  uint                    `json:"board_id" binding:"required"`
	Settings *models.SessionSettings `json:"settings"`
}

type JoinSessionRequest struct {
	DisplayName string `json:"display_name" binding:"required,max=40"`
	Color       string `json:"color"`
}

type MarkCellRequest struct {
	Position        int `json:"position"`
	ExpectedVersion int `json:"expected_version"`
}

// SessionState is the live snapshot cached in redis and served to clients
// on (re)connect and gap recovery.
type SessionState struct {
	SessionID    uint            `json:"session_id"`
	BoardID      uint            `json:"board_id"`
	Code         string          `json:"code"`
	Status       string          `json:"status"`
	Grid         *game.Board     `json:"grid"`
	Players      []SessionPlayer `json:"players"`
	WinnerID     *uint           `json:"winner_id,omitempty"`
	LastSequence int64           `json:"last_sequence"`
}

type SessionPlayer struct {
	UserID           uint   `json:"user_id"`
	DisplayName      string `json:"display_name"`
	Color            string `json:"color"`
	IsHost           bool   `json:"is_host"`
	IsReady          bool   `json:"is_ready"`
	Position         int    `json:"position"`
	Score            int    `json:"score"`
	ConnectionStatus string `json:"connection_status"`
}

// CreateSession spins up a new play-through of a board. The creator becomes
// the host and takes the first seat.
func (s *SessionService) CreateSession(hostID uint, req *CreateSessionRequest) (*models.Session, error) {
	var board models.Board
	if err := s.db.First(&board, req.BoardID).Error; err != nil {
		return nil, errors.New("board not found")
	}
	if !board.IsPublic && board.CreatorID != hostID {
		return nil, errors.New("board not found")
	}

	grid, err := board.CellGrid()
	if err != nil {
		return nil, err
	}
	if err := game.ValidateBoard(grid); err != nil {
		return nil, err
	}

	// Fresh play state: same texts, nothing marked, version counter reset.
	playGrid := game.NewBoard(board.Size, cellTexts(grid))

	session := models.Session{
		BoardID:     board.ID,
		HostID:      hostID,
		SessionCode: s.generateSessionCode(),
		Status:      game.StatusWaiting,
	}

	settings := models.DefaultSessionSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	if err := session.SetSettings(settings); err != nil {
		return nil, err
	}
	if err := session.SetCellGrid(playGrid); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		host := models.SessionPlayer{
			SessionID:        session.ID,
			UserID:           hostID,
			DisplayName:      fmt.Sprintf("player-%d", hostID),
			Color:            models.PlayerColors[0],
			IsHost:           true,
			Position:         0,
			JoinedAt:         time.Now().UTC(),
			ConnectionStatus: models.ConnectionConnected,
		}
		if err := tx.Create(&host).Error; err != nil {
			return err
		}

		_, err := s.appendEvent(tx, &session, models.EventPlayerJoined, &hostID, models.PlayerJoinedPayload{
			PlayerID:    hostID,
			DisplayName: host.DisplayName,
			Color:       host.Color,
			Position:    host.Position,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.refreshStateCache(&session)
	return &session, nil
}

func (s *SessionService) GetSessionByCode(code string) (*models.Session, error) {
	var session models.Session
	err := s.db.Where("session_code = ?", normalizeCode(code)).
		Preload("Board").
		Preload("Players", "left_at IS NULL").
		First(&session).Error
	if err != nil {
		return nil, game.ErrSessionNotFound
	}
	return &session, nil
}

// JoinSession seats a user in a waiting session. Colors are unique per
// session; a requested color that is already taken falls back to the next
// free palette entry.
func (s *SessionService) JoinSession(code string, userID uint, req *JoinSessionRequest, hub *Hub) (*models.SessionPlayer, error) {
	var player *models.SessionPlayer
	var event *models.SessionEvent

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.lockSession(tx, code)
		if err != nil {
			return err
		}

		if game.IsTerminal(session.Status) {
			return game.ErrSessionTerminal
		}
		if session.Status != game.StatusWaiting {
			return fmt.Errorf("session has status '%s' - cannot join", session.Status)
		}

		var players []models.SessionPlayer
		if err := tx.Where("session_id = ? AND left_at IS NULL", session.ID).Find(&players).Error; err != nil {
			return err
		}

		for _, p := range players {
			if p.UserID == userID {
				return errors.New("already joined this session")
			}
		}

		settings := session.ParsedSettings()
		if len(players) >= settings.MaxPlayers {
			return errors.New("session is full")
		}

		color, err := pickColor(req.Color, players)
		if err != nil {
			return err
		}

		player = &models.SessionPlayer{
			SessionID:        session.ID,
			UserID:           userID,
			DisplayName:      req.DisplayName,
			Color:            color,
			Position:         len(players),
			IsReady:          !settings.RequireApproval,
			JoinedAt:         time.Now().UTC(),
			ConnectionStatus: models.ConnectionConnected,
		}
		if err := tx.Create(player).Error; err != nil {
			return err
		}

		event, err = s.appendEvent(tx, session, models.EventPlayerJoined, &userID, models.PlayerJoinedPayload{
			PlayerID:    userID,
			DisplayName: player.DisplayName,
			Color:       player.Color,
			Position:    player.Position,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStateCache(code)
	s.broadcast(hub, code, event)
	return player, nil
}

// LeaveSession releases a seat. If the host leaves, the seat with the
// lowest position inherits the session.
func (s *SessionService) LeaveSession(code string, userID uint, hub *Hub) error {
	var events []*models.SessionEvent

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.lockSession(tx, code)
		if err != nil {
			return err
		}

		var player models.SessionPlayer
		if err := tx.Where("session_id = ? AND user_id = ? AND left_at IS NULL", session.ID, userID).First(&player).Error; err != nil {
			return errors.New("not a player in this session")
		}

		now := time.Now().UTC()
		player.LeftAt = &now
		player.ConnectionStatus = models.ConnectionDisconnected
		wasHost := player.IsHost
		player.IsHost = false
		if err := tx.Save(&player).Error; err != nil {
			return err
		}

		event, err := s.appendEvent(tx, session, models.EventPlayerLeft, &userID, models.PlayerLeftPayload{PlayerID: userID})
		if err != nil {
			return err
		}
		events = append(events, event)

		if !wasHost {
			return nil
		}

		var next models.SessionPlayer
		if err := tx.Where("session_id = ? AND left_at IS NULL", session.ID).Order("position").First(&next).Error; err != nil {
			// Last player out: a waiting or running game without players
			// cannot continue.
			if !game.IsTerminal(session.Status) {
				return s.transition(tx, session, game.StatusCancelled, &events, "all players left")
			}
			return nil
		}

		next.IsHost = true
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		session.HostID = next.UserID
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		event, err = s.appendEvent(tx, session, models.EventHostChanged, &userID, models.HostChangedPayload{
			OldHostID: userID,
			NewHostID: next.UserID,
		})
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateStateCache(code)
	for _, event := range events {
		s.broadcast(hub, code, event)
	}
	return nil
}

// StartSession moves a waiting session to active. Host-only, and only once
// the roster meets the board's configured minimum.
func (s *SessionService) StartSession(code string, userID uint, hub *Hub) (*models.Session, error) {
	var events []*models.SessionEvent
	var session *models.Session

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.lockSession(tx, code)
		if err != nil {
			return err
		}

		if session.HostID != userID {
			return game.ErrNotHost
		}
		if !game.CanTransition(session.Status, game.StatusActive) || session.Status != game.StatusWaiting {
			return fmt.Errorf("%w: %s -> %s", game.ErrInvalidTransition, session.Status, game.StatusActive)
		}

		var board models.Board
		if err := tx.First(&board, session.BoardID).Error; err != nil {
			return errors.New("board not found")
		}

		var playerCount int64
		if err := tx.Model(&models.SessionPlayer{}).Where("session_id = ? AND left_at IS NULL", session.ID).Count(&playerCount).Error; err != nil {
			return err
		}
		if playerCount < int64(board.ParsedSettings().MinPlayers) {
			return fmt.Errorf("%w: have %d, need %d", game.ErrInsufficientPlayers, playerCount, board.ParsedSettings().MinPlayers)
		}

		now := time.Now().UTC()
		session.Status = game.StatusActive
		session.StartedAt = &now
		session.Version++
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		event, err := s.appendEvent(tx, session, models.EventGameStarted, &userID, models.GameStartedPayload{
			StartedAt:   now,
			PlayerCount: int(playerCount),
		})
		if err != nil {
			return err
		}
		events = append(events, event)

		settings := session.ParsedSettings()
		if settings.TimeLimitSeconds > 0 {
			event, err = s.appendEvent(tx, session, models.EventTimerStarted, &userID, models.TimerPayload{SecondsRemaining: settings.TimeLimitSeconds})
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStateCache(code)
	for _, event := range events {
		s.broadcast(hub, code, event)
	}

	if settings := session.ParsedSettings(); settings.TimeLimitSeconds > 0 {
		go s.runSessionTimer(session.SessionCode, settings.TimeLimitSeconds, hub)
	}

	return session, nil
}

// PauseSession and ResumeSession toggle active<->paused, host-only.
func (s *SessionService) PauseSession(code string, userID uint, hub *Hub) (*models.Session, error) {
	return s.hostTransition(code, userID, game.StatusPaused, models.EventGamePaused, hub)
}

func (s *SessionService) ResumeSession(code string, userID uint, hub *Hub) (*models.Session, error) {
	return s.hostTransition(code, userID, game.StatusActive, models.EventGameResumed, hub)
}

// CancelSession ends the session from any non-terminal state, with no
// winner.
func (s *SessionService) CancelSession(code string, userID uint, hub *Hub) (*models.Session, error) {
	var events []*models.SessionEvent
	var session *models.Session

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.lockSession(tx, code)
		if err != nil {
			return err
		}
		if session.HostID != userID {
			return game.ErrNotHost
		}
		if game.IsTerminal(session.Status) {
			return game.ErrSessionTerminal
		}
		return s.transition(tx, session, game.StatusCancelled, &events, "cancelled by host")
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStateCache(code)
	for _, event := range events {
		s.broadcast(hub, code, event)
	}
	return session, nil
}

// MarkCell applies one optimistic cell mark. A stale expected version is
// retried exactly once against the latest state; a second conflict, or any
// other failure, surfaces to the caller. A detected win completes the
// session in the same transaction.
func (s *SessionService) MarkCell(code string, userID uint, req *MarkCellRequest, hub *Hub) (*models.Session, error) {
	session, events, err := s.markCellOnce(code, userID, req.Position, req.ExpectedVersion)
	if errors.Is(err, game.ErrVersionConflict) {
		s.recordConflict(code, userID, req.Position, req.ExpectedVersion, hub)

		log.Printf("Version conflict on session %s position %d, retrying against latest", code, req.Position)
		current, getErr := s.GetSessionByCode(code)
		if getErr != nil {
			return nil, getErr
		}
		session, events, err = s.markCellOnce(code, userID, req.Position, current.Version)
		if errors.Is(err, game.ErrVersionConflict) {
			s.recordConflict(code, userID, req.Position, current.Version, hub)
		}
	}
	if err != nil {
		return nil, err
	}

	s.invalidateStateCache(code)
	for _, event := range events {
		s.broadcast(hub, code, event)
	}
	return session, nil
}

func (s *SessionService) markCellOnce(code string, userID uint, position, expectedVersion int) (*models.Session, []*models.SessionEvent, error) {
	var events []*models.SessionEvent
	var session *models.Session

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.lockSession(tx, code)
		if err != nil {
			return err
		}

		// A write that lands after the game is over is rejected, not
		// applied, no matter how long the network held it.
		if game.IsTerminal(session.Status) {
			return game.ErrSessionTerminal
		}
		if session.Status == game.StatusPaused {
			return game.ErrSessionPaused
		}
		if session.Status != game.StatusActive {
			return fmt.Errorf("%w: session is %s", game.ErrInvalidTransition, session.Status)
		}

		var player models.SessionPlayer
		if err := tx.Where("session_id = ? AND user_id = ? AND left_at IS NULL", session.ID, userID).First(&player).Error; err != nil {
			return errors.New("not a player in this session")
		}

		grid, err := session.CellGrid()
		if err != nil {
			return err
		}

		markedAt := time.Now().UTC()
		nextGrid, err := game.ApplyCellMark(grid, position, userID, expectedVersion, markedAt)
		if err != nil {
			return err
		}

		session.Version = nextGrid.Version
		if err := session.SetCellGrid(nextGrid); err != nil {
			return err
		}

		if err := tx.Model(&player).Update("score", gorm.Expr("score + 1")).Error; err != nil {
			return err
		}

		event, err := s.appendEvent(tx, session, models.EventCellMarked, &userID, models.CellMarkedPayload{
			Position: position,
			PlayerID: userID,
			MarkedAt: markedAt,
			Version:  nextGrid.Version,
		})
		if err != nil {
			return err
		}
		events = append(events, event)

		var board models.Board
		if err := tx.First(&board, session.BoardID).Error; err != nil {
			return errors.New("board not found")
		}

		result := game.DetectWin(nextGrid.Cells, board.Size, board.ParsedSettings().WinConditions)
		if result.Won {
			event, err = s.appendEvent(tx, session, models.EventWinDetected, &result.WinnerID, models.WinDetectedPayload{
				Pattern:  *result.Pattern,
				WinnerID: result.WinnerID,
				Players:  result.Players,
			})
			if err != nil {
				return err
			}
			events = append(events, event)

			session.WinnerID = &result.WinnerID
			if err := s.transition(tx, session, game.StatusCompleted, &events, "win detected"); err != nil {
				return err
			}
		}

		return tx.Save(session).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return session, events, nil
}

// recordConflict appends a conflict_detected event in its own transaction,
// so the rolled-back write still leaves a trace clients can explain the
// rejection with.
func (s *SessionService) recordConflict(code string, userID uint, position, expectedVersion int, hub *Hub) {
	var event *models.SessionEvent

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.lockSession(tx, code)
		if err != nil {
			return err
		}
		event, err = s.appendEvent(tx, session, models.EventConflictDetected, &userID, models.ConflictDetectedPayload{
			Position:        position,
			PlayerID:        userID,
			ExpectedVersion: expectedVersion,
			ActualVersion:   session.Version,
		})
		return err
	})
	if err != nil {
		log.Printf("Failed to record conflict for session %s: %v", code, err)
		return
	}

	s.broadcast(hub, code, event)
}

// UnmarkCell reverses a mark. Disabled when the board runs in lockout mode.
func (s *SessionService) UnmarkCell(code string, userID uint, req *MarkCellRequest, hub *Hub) (*models.Session, error) {
	var events []*models.SessionEvent
	var session *models.Session

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.lockSession(tx, code)
		if err != nil {
			return err
		}
		if game.IsTerminal(session.Status) {
			return game.ErrSessionTerminal
		}
		if session.Status == game.StatusPaused {
			return game.ErrSessionPaused
		}
		if session.Status != game.StatusActive {
			return fmt.Errorf("%w: session is %s", game.ErrInvalidTransition, session.Status)
		}

		var board models.Board
		if err := tx.First(&board, session.BoardID).Error; err != nil {
			return errors.New("board not found")
		}
		if board.ParsedSettings().Lockout {
			return errors.New("cells cannot be unmarked in lockout mode")
		}

		grid, err := session.CellGrid()
		if err != nil {
			return err
		}

		nextGrid, err := game.ApplyCellUnmark(grid, req.Position, userID, req.ExpectedVersion)
		if err != nil {
			return err
		}

		session.Version = nextGrid.Version
		if err := session.SetCellGrid(nextGrid); err != nil {
			return err
		}

		event, err := s.appendEvent(tx, session, models.EventCellUnmarked, &userID, models.CellUnmarkedPayload{
			Position: req.Position,
			PlayerID: userID,
			Version:  nextGrid.Version,
		})
		if err != nil {
			return err
		}
		events = append(events, event)

		return tx.Save(session).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStateCache(code)
	for _, event := range events {
		s.broadcast(hub, code, event)
	}
	return session, nil
}

// GetEventsSince serves the gap-recovery path: everything after the
// client's last applied sequence, in order.
func (s *SessionService) GetEventsSince(code string, sinceSequence int64) ([]models.SessionEvent, error) {
	session, err := s.GetSessionByCode(code)
	if err != nil {
		return nil, err
	}

	var events []models.SessionEvent
	err = s.db.Where("session_id = ? AND sequence > ?", session.ID, sinceSequence).
		Order("sequence").
		Find(&events).Error
	return events, err
}

// UpdateConnectionStatus records connect/disconnect/reconnect transitions
// observed by the websocket hub.
func (s *SessionService) UpdateConnectionStatus(code string, userID uint, status string, hub *Hub) error {
	var event *models.SessionEvent

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.lockSession(tx, code)
		if err != nil {
			return err
		}

		var player models.SessionPlayer
		if err := tx.Where("session_id = ? AND user_id = ? AND left_at IS NULL", session.ID, userID).First(&player).Error; err != nil {
			return errors.New("not a player in this session")
		}

		if player.ConnectionStatus == status {
			return nil
		}
		previous := player.ConnectionStatus
		player.ConnectionStatus = status
		if err := tx.Save(&player).Error; err != nil {
			return err
		}

		eventType := models.EventPlayerDisconnected
		if status == models.ConnectionConnected && previous != models.ConnectionConnected {
			eventType = models.EventPlayerReconnected
		}
		event, err = s.appendEvent(tx, session, eventType, &userID, models.PlayerConnectionPayload{
			PlayerID: userID,
			Status:   status,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.invalidateStateCache(code)
	if event != nil {
		s.broadcast(hub, code, event)
	}
	return nil
}

// GetCurrentSessionState returns the full snapshot clients reconcile
// against, redis-cached with a database fallback.
func (s *SessionService) GetCurrentSessionState(code string) (*SessionState, error) {
	code = normalizeCode(code)

	if state := s.getStateCache(code); state != nil {
		return state, nil
	}

	session, err := s.GetSessionByCode(code)
	if err != nil {
		return nil, err
	}

	grid, err := session.CellGrid()
	if err != nil {
		return nil, err
	}

	var lastSequence int64
	s.db.Model(&models.SessionEvent{}).Where("session_id = ?", session.ID).
		Select("COALESCE(MAX(sequence), 0)").Scan(&lastSequence)

	state := &SessionState{
		SessionID:    session.ID,
		BoardID:      session.BoardID,
		Code:         session.SessionCode,
		Status:       session.Status,
		Grid:         grid,
		WinnerID:     session.WinnerID,
		LastSequence: lastSequence,
	}
	for _, p := range session.Players {
		state.Players = append(state.Players, SessionPlayer{
			UserID:           p.UserID,
			DisplayName:      p.DisplayName,
			Color:            p.Color,
			IsHost:           p.IsHost,
			IsReady:          p.IsReady,
			Position:         p.Position,
			Score:            p.Score,
			ConnectionStatus: p.ConnectionStatus,
		})
	}

	s.storeStateCache(state)
	return state, nil
}

// --- internals ---

func (s *SessionService) hostTransition(code string, userID uint, target, eventType string, hub *Hub) (*models.Session, error) {
	var event *models.SessionEvent
	var session *models.Session

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.lockSession(tx, code)
		if err != nil {
			return err
		}
		if session.HostID != userID {
			return game.ErrNotHost
		}
		if !game.CanTransition(session.Status, target) {
			return fmt.Errorf("%w: %s -> %s", game.ErrInvalidTransition, session.Status, target)
		}

		session.Status = target
		session.Version++
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		var payload any
		switch eventType {
		case models.EventGamePaused:
			payload = models.GamePausedPayload{PausedBy: userID}
		case models.EventGameResumed:
			payload = models.GameResumedPayload{ResumedBy: userID}
		}
		event, err = s.appendEvent(tx, session, eventType, &userID, payload)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStateCache(code)
	s.broadcast(hub, code, event)
	return session, nil
}

// transition moves a session into a terminal state and appends the
// game_ended event. Caller holds the row lock.
func (s *SessionService) transition(tx *gorm.DB, session *models.Session, target string, events *[]*models.SessionEvent, reason string) error {
	if !game.CanTransition(session.Status, target) {
		return fmt.Errorf("%w: %s -> %s", game.ErrInvalidTransition, session.Status, target)
	}

	now := time.Now().UTC()
	session.Status = target
	session.EndedAt = &now
	session.Version++
	if err := tx.Save(session).Error; err != nil {
		return err
	}

	event, err := s.appendEvent(tx, session, models.EventGameEnded, nil, models.GameEndedPayload{
		Status:   target,
		WinnerID: session.WinnerID,
		EndedAt:  now,
		Reason:   reason,
	})
	if err != nil {
		return err
	}
	*events = append(*events, event)
	return nil
}

// appendEvent assigns the next per-session sequence number and persists the
// event inside the caller's transaction, so the log stays gap-free.
func (s *SessionService) appendEvent(tx *gorm.DB, session *models.Session, eventType string, playerID *uint, payload any) (*models.SessionEvent, error) {
	event, err := models.NewSessionEvent(session.ID, eventType, playerID, payload)
	if err != nil {
		return nil, err
	}

	var lastSequence int64
	if err := tx.Model(&models.SessionEvent{}).Where("session_id = ?", session.ID).
		Select("COALESCE(MAX(sequence), 0)").Scan(&lastSequence).Error; err != nil {
		return nil, err
	}
	event.Sequence = lastSequence + 1

	if err := tx.Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (s *SessionService) lockSession(tx *gorm.DB, code string) (*models.Session, error) {
	var session models.Session
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_code = ?", normalizeCode(code)).
		First(&session).Error
	if err != nil {
		return nil, game.ErrSessionNotFound
	}
	return &session, nil
}

// runSessionTimer ends a time-limited session when the clock runs out. The
// leader by score takes the win.
func (s *SessionService) runSessionTimer(code string, seconds int, hub *Hub) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	remaining := seconds
	log.Printf("Session %s timer started: %d seconds", code, seconds)

	for remaining > 0 {
		<-ticker.C

		session, err := s.GetSessionByCode(code)
		if err != nil {
			return
		}
		if game.IsTerminal(session.Status) {
			return
		}
		if session.Status == game.StatusPaused {
			continue
		}
		remaining--
	}

	log.Printf("Session %s timer expired", code)
	s.endByTimeout(code, hub)
}

func (s *SessionService) endByTimeout(code string, hub *Hub) {
	var events []*models.SessionEvent

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.lockSession(tx, code)
		if err != nil {
			return err
		}
		if game.IsTerminal(session.Status) {
			return nil
		}

		var leader models.SessionPlayer
		if err := tx.Where("session_id = ? AND left_at IS NULL", session.ID).
			Order("score DESC, position ASC").First(&leader).Error; err == nil && leader.Score > 0 {
			session.WinnerID = &leader.UserID
		}

		event, err := s.appendEvent(tx, session, models.EventTimerStopped, nil, models.TimerPayload{SecondsRemaining: 0})
		if err != nil {
			return err
		}
		events = append(events, event)

		return s.transition(tx, session, game.StatusCompleted, &events, "time limit reached")
	})
	if err != nil {
		log.Printf("Failed to end session %s on timeout: %v", code, err)
		return
	}

	s.invalidateStateCache(code)
	for _, event := range events {
		s.broadcast(hub, code, event)
	}
}

func (s *SessionService) broadcast(hub *Hub, code string, event *models.SessionEvent) {
	if hub == nil || event == nil {
		return
	}
	hub.BroadcastEvent(normalizeCode(code), event)
}

func (s *SessionService) generateSessionCode() string {
	bytes := make([]byte, 3)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:6]
}

func normalizeCode(code string) string {
	return strings.ToLower(code)
}

// pickColor honors a requested palette color when free, otherwise hands out
// the first unused one.
func pickColor(requested string, players []models.SessionPlayer) (string, error) {
	taken := make(map[string]bool, len(players))
	for _, p := range players {
		taken[p.Color] = true
	}

	if requested != "" && !taken[requested] {
		return requested, nil
	}

	for _, color := range models.PlayerColors {
		if !taken[color] {
			return color, nil
		}
	}
	return "", errors.New("no colors left in this session")
}

func cellTexts(grid *game.Board) []string {
	texts := make([]string, len(grid.Cells))
	for i, cell := range grid.Cells {
		texts[i] = cell.Text
	}
	return texts
}

// --- redis state cache, backing the full-state re-fetch on resync ---

func (s *SessionService) storeStateCache(state *SessionState) {
	data, err := json.Marshal(state)
	if err != nil {
		log.Printf("Failed to marshal session state: %v", err)
		return
	}
	if err := s.redis.Set(context.Background(), "session:"+state.Code, data, 2*time.Hour).Err(); err != nil {
		log.Printf("Failed to store session state in Redis: %v", err)
	}
}

func (s *SessionService) getStateCache(code string) *SessionState {
	data, err := s.redis.Get(context.Background(), "session:"+code).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error getting session state for %s: %v", code, err)
		}
		return nil
	}

	var state SessionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		log.Printf("Failed to unmarshal session state for %s: %v", code, err)
		return nil
	}
	return &state
}

func (s *SessionService) invalidateStateCache(code string) {
	if err := s.redis.Del(context.Background(), "session:"+normalizeCode(code)).Err(); err != nil {
		log.Printf("Failed to invalidate session state for %s: %v", code, err)
	}
}

func (s *SessionService) refreshStateCache(session *models.Session) {
	if _, err := s.GetCurrentSessionState(session.SessionCode); err != nil {
		log.Printf("Failed to refresh session state for %s: %v", session.SessionCode, err)
	}
}
