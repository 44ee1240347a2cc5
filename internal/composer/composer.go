// Package composer renders structured negotiation intent into chat
// prose. The default implementation is deterministic templates; the
// engine treats it as a swappable collaborator behind
// ports.TextComposer, so an LLM-backed composer can be substituted
// without touching decision logic.
package composer

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
)

// TemplateComposer phrases decisions with fixed templates. Template
// choice is keyed off the primary tactic and the message count, so the
// phrasing varies over a conversation while identical input always
// produces identical output.
type TemplateComposer struct{}

// New returns the default deterministic composer.
func New() *TemplateComposer { return &TemplateComposer{} }

var _ ports.TextComposer = (*TemplateComposer)(nil)

var tacticTemplates = map[domain.Tactic][]string{
	domain.TacticAnchoring: {
		"Based on current market rates for similar items, I was thinking around %s. What do you think?",
		"I've seen similar products selling for %s. Would that work for you?",
	},
	domain.TacticScarcity: {
		"I'm looking at a few similar listings. If we can agree on %s, I can decide right away.",
		"I have another option, but I prefer yours. Can you consider %s?",
	},
	domain.TacticUrgency: {
		"I need to make a decision today. If %s works, I can arrange pickup immediately.",
		"I can transfer the money right now if we agree on %s.",
	},
	domain.TacticReciprocity: {
		"I appreciate your flexibility. Meeting me at %s would really help my budget.",
		"Since you're being reasonable, I can stretch to %s. That's really my best offer.",
	},
	domain.TacticSocialProof: {
		"Similar items in this condition usually sell for around %s. Market research shows this is fair.",
		"Based on what others are paying for similar products, %s seems right.",
	},
	domain.TacticBundling: {
		"For %s, could you include the original accessories? That would make it worthwhile.",
		"I can do %s if you can help with delivery.",
	},
	domain.TacticAuthority: {
		"My budget advisor suggested not going above %s for items like this.",
		"Based on expert recommendations, %s is the fair market value.",
	},
	domain.TacticCommitment: {
		"If you accept %s, I'm ready to close the deal right now.",
		"%s and we have a deal. I'll bring cash for immediate pickup.",
	},
}

var exploratoryTemplates = []string{
	"I'm very interested in your listing. Could you tell me more about the condition?",
	"This looks perfect for what I need. Is there any flexibility on the pricing?",
	"I've been looking for exactly this item. What's the best price you can offer?",
}

// Compose implements ports.TextComposer.
func (c *TemplateComposer) Compose(ctx context.Context, req ports.ComposeRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if req.Opening {
		return c.opening(req), nil
	}

	switch req.Decision.Action {
	case domain.ActionAccept:
		return "Perfect! I accept your offer. I can arrange cash payment and pickup at your convenience. " +
			"Please share your preferred time and location for the transaction.", nil
	case domain.ActionAcceptWithConditions:
		return "I can work with that price if you can include delivery or the original accessories. " +
			"Would that be acceptable?", nil
	case domain.ActionWalkAway:
		return fmt.Sprintf("I understand your position, but %s is really the maximum I can go. "+
			"If you change your mind, please let me know. Otherwise, I'll have to consider other options. "+
			"Thank you for your time.", inr(req.Session.Params.MaxBudget)), nil
	case domain.ActionCounterOffer, domain.ActionFinalOffer:
		return c.offer(req), nil
	default:
		return pick(exploratoryTemplates, len(req.Session.Messages)), nil
	}
}

func (c *TemplateComposer) opening(req ports.ComposeRequest) string {
	title := req.Session.Product.Title
	if title == "" {
		title = "your listing"
	}
	lead := fmt.Sprintf("Hi! I'm interested in %s.", title)

	if len(req.Tactics) > 0 && req.Tactics[0] == domain.TacticAnchoring {
		return fmt.Sprintf("%s Based on similar listings I've seen, would %s work for you?",
			lead, inr(req.Session.Strategy.OpeningOffer))
	}
	return lead + " Could you tell me more about its condition and if there's any flexibility in the price?"
}

func (c *TemplateComposer) offer(req ports.ComposeRequest) string {
	amount := req.Session.Params.TargetPrice
	if req.Decision.Offer != nil {
		amount = *req.Decision.Offer
	}
	formatted := inr(amount)

	templates, ok := tacticTemplates[primary(req.Tactics)]
	if !ok {
		templates = []string{"I can offer %s. What do you think?"}
	}
	text := fmt.Sprintf(pick(templates, len(req.Session.Messages)), formatted)

	if req.Decision.Action == domain.ActionFinalOffer {
		text += " This is my best offer. Please let me know if this works for you."
	}
	return text
}

// Fallback derives a message purely from the decision, for use when the
// configured composer fails or times out. It must stay deterministic.
func Fallback(decision domain.Decision, params domain.NegotiationParams) string {
	switch decision.Action {
	case domain.ActionAccept:
		return "That works for me. How would you like to arrange payment and pickup?"
	case domain.ActionAcceptWithConditions:
		return "I can agree to that price if we can settle the remaining details. Shall we?"
	case domain.ActionWalkAway:
		return fmt.Sprintf("Thank you for your time, but %s is beyond my budget. I'll have to pass.", inr(params.MaxBudget))
	case domain.ActionCounterOffer, domain.ActionFinalOffer:
		if decision.Offer != nil {
			return fmt.Sprintf("Would %s be acceptable?", inr(*decision.Offer))
		}
		return fmt.Sprintf("Would %s be acceptable?", inr(params.TargetPrice))
	default:
		return "I understand. Let me think about your offer and get back to you."
	}
}

func primary(tactics []domain.Tactic) domain.Tactic {
	if len(tactics) == 0 {
		return domain.TacticAnchoring
	}
	return tactics[0]
}

func pick(templates []string, seed int) string {
	if len(templates) == 0 {
		return ""
	}
	return templates[seed%len(templates)]
}

func inr(amount int) string {
	return "₹" + humanize.Comma(int64(amount))
}
