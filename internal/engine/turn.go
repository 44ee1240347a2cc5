package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealsense/negotiator/internal/analyzer"
	"github.com/dealsense/negotiator/internal/composer"
	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
	"github.com/dealsense/negotiator/internal/negotiation"
)

// StartNegotiation moves an initializing session to active and sends
// the agent's opening message. The opening turn runs the normal
// pipeline minus the intervention and completion scans: there is no
// seller input to scan and nothing to complete.
func (e *Engine) StartNegotiation(ctx context.Context, id string) (*domain.TurnResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.StartNegotiation",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	st, err := e.state(id)
	if err != nil {
		return nil, err
	}
	if !st.mu.TryLock() {
		return nil, domain.ErrBusy(id)
	}
	defer st.mu.Unlock()

	cur := st.current()
	switch {
	case cur.Status.Terminal():
		return nil, domain.ErrConflict("session " + id + " already ended")
	case cur.Status != domain.StatusInitializing:
		return nil, domain.ErrConflict("session " + id + " already started")
	}

	version := st.version.Load()
	turnCtx, cancel := context.WithCancel(ctx)
	st.setCancel(cancel)
	defer func() {
		st.setCancel(nil)
		cancel()
	}()

	work := cur.Clone()
	work.Status = domain.StatusActive

	analysis := e.analyzer.Analyze("", nil)
	decision, err := negotiation.Decide(negotiation.DecideInput{
		Price:         work.Product.Price,
		TargetPrice:   work.Params.TargetPrice,
		MaxBudget:     work.Params.MaxBudget,
		Flexibility:   analysis.Flexibility,
		Phase:         domain.PhaseOpening,
		CounterMargin: e.policy.CounterMargin,
	})
	if err != nil {
		return nil, e.failTurn(ctx, st, version, err)
	}

	tactics := e.tactics.Select(domain.PhaseOpening, analysis)
	text := e.compose(turnCtx, ports.ComposeRequest{
		Session:  work,
		Decision: decision,
		Tactics:  tactics,
		Analysis: analysis,
		Opening:  true,
	})

	msg := e.newMessage(work, domain.SenderAgent, text, domain.KindNormal)
	work.Messages = append(work.Messages, msg)
	work.Tactics = append(work.Tactics, tactics...)
	recordTurnMetrics(work, decision)

	if st.version.Load() != version {
		return nil, domain.ErrConflict("session " + id + " ended while starting")
	}
	st.cur.Store(work)

	if err := e.store.SaveSession(ctx, work); err != nil {
		e.logger.ErrorContext(ctx, "persist session failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
	}

	e.publish(ctx, id, ports.ChannelBuyerMonitor, ports.Event{
		Type: "negotiation_started", SessionID: id,
	})
	e.publishMessage(ctx, id, msg)
	e.logger.InfoContext(ctx, "negotiation started",
		slog.String("session_id", id),
		slog.String("action", string(decision.Action)))

	return &domain.TurnResult{
		SessionID:    id,
		Status:       work.Status,
		Phase:        work.Phase,
		AgentMessage: &msg,
		Decision:     &decision,
		TacticsUsed:  tactics,
		Analysis:     &analysis,
		Confidence:   decision.Confidence,
	}, nil
}

// ProcessSellerMessage runs one full turn: log the seller message, scan
// for intervention, analyze, re-derive the phase, decide, select
// tactics, compose the reply, and check completion. The session mutex
// is held throughout; a concurrent turn for the same session is
// rejected as busy.
func (e *Engine) ProcessSellerMessage(ctx context.Context, id, text string) (*domain.TurnResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.ProcessSellerMessage",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	if text == "" {
		return nil, domain.ErrValidation("message content required")
	}

	st, err := e.state(id)
	if err != nil {
		return nil, err
	}
	if !st.mu.TryLock() {
		return nil, domain.ErrBusy(id)
	}
	defer st.mu.Unlock()

	cur := st.current()
	switch cur.Status {
	case domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled:
		return nil, domain.ErrConflict("session " + id + " already ended")
	case domain.StatusInitializing:
		return nil, domain.ErrConflict("session " + id + " not started")
	}

	version := st.version.Load()
	turnCtx, cancel := context.WithCancel(ctx)
	st.setCancel(cancel)
	defer func() {
		st.setCancel(nil)
		cancel()
	}()

	work := cur.Clone()
	sellerMsg := e.newMessage(work, domain.SenderSeller, text, domain.KindNormal)
	work.Messages = append(work.Messages, sellerMsg)

	// After a handoff the agent stays silent; seller traffic is only
	// logged for the human operator.
	if work.Status == domain.StatusHumanHandoff {
		return e.commitTurn(ctx, st, version, work, &domain.TurnResult{
			SessionID: id,
			Status:    work.Status,
			Phase:     work.Phase,
		}, nil)
	}

	if trigger := negotiation.CheckIntervention(work.Messages, text, e.policy.Intervention); trigger != nil {
		handoff := e.newMessage(work, domain.SenderAgent, negotiation.HandoffText(*trigger), domain.KindHandoff)
		work.Messages = append(work.Messages, handoff)
		work.Status = domain.StatusHumanHandoff
		result := &domain.TurnResult{
			SessionID:      id,
			Status:         work.Status,
			Phase:          work.Phase,
			HandoffMessage: &handoff,
			Handoff:        trigger,
		}
		return e.commitTurn(ctx, st, version, work, result, func() {
			e.publishMessage(ctx, id, handoff)
			e.publish(ctx, id, ports.ChannelBuyerMonitor, ports.Event{
				Type:      "handoff",
				SessionID: id,
				Payload:   map[string]any{"trigger": *trigger},
			})
			e.logger.InfoContext(ctx, "human handoff",
				slog.String("session_id", id),
				slog.String("trigger", string(*trigger)))
		})
	}

	analysis := e.analyzer.Analyze(text, work.Messages[:len(work.Messages)-1])
	work.Phase = negotiation.DeterminePhase(work.Messages, analysis)

	price, sellerAccepted := effectivePrice(work, analysis)
	decision, err := negotiation.Decide(negotiation.DecideInput{
		Price:          price,
		TargetPrice:    work.Params.TargetPrice,
		MaxBudget:      work.Params.MaxBudget,
		Flexibility:    analysis.Flexibility,
		Phase:          work.Phase,
		SellerAccepted: sellerAccepted,
		CounterMargin:  e.policy.CounterMargin,
	})
	if err != nil {
		return nil, e.failTurn(ctx, st, version, err)
	}

	tactics := e.tactics.Select(work.Phase, analysis)
	reply := e.compose(turnCtx, ports.ComposeRequest{
		Session:  work,
		Decision: decision,
		Tactics:  tactics,
		Analysis: analysis,
	})

	agentMsg := e.newMessage(work, domain.SenderAgent, reply, domain.KindNormal)
	work.Messages = append(work.Messages, agentMsg)
	work.Tactics = append(work.Tactics, tactics...)
	recordTurnMetrics(work, decision)

	result := &domain.TurnResult{
		SessionID:    id,
		Status:       work.Status,
		Phase:        work.Phase,
		AgentMessage: &agentMsg,
		Decision:     &decision,
		TacticsUsed:  tactics,
		Analysis:     &analysis,
		Confidence:   decision.Confidence,
	}

	var onCommit func()
	if outcome := negotiation.CheckCompletion(decision, len(work.Messages), e.policy.Completion); outcome != nil {
		now := e.clock()
		work.Status = domain.StatusCompleted
		work.Outcome = *outcome
		work.EndedAt = &now
		if *outcome == domain.OutcomeSuccess {
			fp := price
			work.FinalPrice = &fp
		}
		result.Status = work.Status
		result.Outcome = outcome
		result.FinalPrice = work.FinalPrice

		// Completion finalizes the session: the record stays in the
		// store, the registry entry goes away.
		final := work
		onCommit = func() {
			e.recordOutcome(ctx, final)
			e.deregister(id)
			e.publish(ctx, id, ports.ChannelBuyerMonitor, ports.Event{
				Type:      "session_completed",
				SessionID: id,
				Payload: map[string]any{
					"outcome":     *outcome,
					"final_price": final.FinalPrice,
				},
			})
			e.logger.InfoContext(ctx, "session completed",
				slog.String("session_id", id),
				slog.String("outcome", string(*outcome)))
		}
	}

	publishReply := func() {
		e.publishMessage(ctx, id, agentMsg)
		if onCommit != nil {
			onCommit()
		}
	}
	return e.commitTurn(ctx, st, version, work, result, publishReply)
}

// commitTurn installs the turn's working copy if the session was not
// ended mid-flight, persists it, and runs post-commit side effects.
func (e *Engine) commitTurn(ctx context.Context, st *sessionState, version int64, work *domain.Session, result *domain.TurnResult, after func()) (*domain.TurnResult, error) {
	if st.version.Load() != version {
		return nil, domain.ErrConflict("session " + work.ID + " ended while processing")
	}
	st.cur.Store(work)

	if err := e.store.SaveSession(ctx, work); err != nil {
		e.logger.ErrorContext(ctx, "persist session failed",
			slog.String("session_id", work.ID),
			slog.String("error", err.Error()))
	}
	if after != nil {
		after()
	}
	return result, nil
}

// failTurn moves the session to failed with a technical_error outcome.
// The registry entry is kept so the failure stays inspectable.
func (e *Engine) failTurn(ctx context.Context, st *sessionState, version int64, cause error) error {
	session := st.current()
	e.logger.ErrorContext(ctx, "turn failed",
		slog.String("session_id", session.ID),
		slog.String("error", cause.Error()))

	if st.version.Load() != version {
		return domain.ErrConflict("session " + session.ID + " ended while processing")
	}

	session = session.Clone()
	now := e.clock()
	session.Status = domain.StatusFailed
	session.Outcome = domain.OutcomeTechnicalError
	session.EndedAt = &now
	errMsg := e.newMessage(session, domain.SenderSystem,
		"An internal error interrupted this negotiation. A human will follow up.", domain.KindError)
	session.Messages = append(session.Messages, errMsg)
	st.cur.Store(session)

	if err := e.store.SaveSession(ctx, session); err != nil {
		e.logger.ErrorContext(ctx, "persist failed session failed",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()))
	}
	e.recordOutcome(ctx, session)
	e.publish(ctx, session.ID, ports.ChannelBuyerMonitor, ports.Event{
		Type:      "session_failed",
		SessionID: session.ID,
	})

	if domain.IsKind(cause, domain.KindTerminal) {
		return cause
	}
	return domain.ErrTerminal("turn processing failed").Wrap(cause)
}

// compose renders the decision, falling back to deterministic text when
// the composer errors or times out. A turn never fails on composition.
func (e *Engine) compose(ctx context.Context, req ports.ComposeRequest) string {
	cctx, cancel := context.WithTimeout(ctx, e.composerTimeout)
	defer cancel()

	text, err := e.composer.Compose(cctx, req)
	if err != nil || text == "" {
		if err != nil {
			e.logger.WarnContext(ctx, "composer failed, using fallback",
				slog.String("session_id", req.Session.ID),
				slog.String("error", err.Error()))
		}
		return composer.Fallback(req.Decision, req.Session.Params)
	}
	return text
}

func (e *Engine) publishMessage(ctx context.Context, sessionID string, msg domain.ChatMessage) {
	event := ports.Event{Type: "agent_message", SessionID: sessionID, Payload: msg}
	e.publish(ctx, sessionID, ports.ChannelSeller, event)
	e.publish(ctx, sessionID, ports.ChannelBuyerMonitor, event)
}

// effectivePrice resolves the price the decision table evaluates: the
// price extracted from the seller's message, else the standing agent
// offer when the seller signalled acceptance, else the listed price.
func effectivePrice(session *domain.Session, analysis domain.SellerAnalysis) (int, bool) {
	if analysis.ExtractedPrice != nil {
		return *analysis.ExtractedPrice, false
	}
	if analysis.HasSignal(domain.SignalPriceAcceptance) {
		if offer := lastAgentOffer(session.Messages); offer != nil {
			return *offer, true
		}
	}
	return session.Product.Price, false
}

// lastAgentOffer finds the most recent price quoted by the agent.
func lastAgentOffer(messages []domain.ChatMessage) *int {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Sender != domain.SenderAgent || m.Kind != domain.KindNormal {
			continue
		}
		if p := analyzer.LatestPrice(m.Content); p != nil {
			return p
		}
	}
	return nil
}

// recordTurnMetrics updates the per-session counters. Effectiveness is
// the share of the listed-to-target gap the latest offer has closed,
// refreshed only on turns that actually emit an offer.
func recordTurnMetrics(session *domain.Session, decision domain.Decision) {
	session.Metrics.MessagesSent++
	session.Metrics.ConfidenceHistory = append(session.Metrics.ConfidenceHistory, decision.Confidence)

	if decision.Offer == nil {
		return
	}
	totalGap := float64(session.Product.Price - session.Params.TargetPrice)
	if totalGap <= 0 {
		return
	}
	progress := float64(session.Product.Price-*decision.Offer) / totalGap
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	session.Metrics.NegotiationEffectiveness = progress
}
