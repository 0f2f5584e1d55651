package capture

import "context"

// hideAll hides every element in the ordered selector list. Selectors that
// match nothing or are already hidden are skipped and the sweep continues;
// any other failure aborts the sweep immediately.
func (c *Capturer) hideAll(ctx context.Context, selectors []string) ([]ToggleOutcome, error) {
	return c.sweep(ctx, selectors, false)
}

// showAll is the inverse sweep, with the same tolerance rules.
func (c *Capturer) showAll(ctx context.Context, selectors []string) ([]ToggleOutcome, error) {
	return c.sweep(ctx, selectors, true)
}

func (c *Capturer) sweep(ctx context.Context, selectors []string, visible bool) ([]ToggleOutcome, error) {
	op := "hide element"
	if visible {
		op = "show element"
	}

	outcomes := make([]ToggleOutcome, 0, len(selectors))
	for _, sel := range selectors {
		state, err := c.drv.SetVisible(ctx, sel, visible)
		if err != nil {
			return outcomes, interactionErr(op, sel, err)
		}
		if state != ToggleApplied {
			c.log.Debug("sticky toggle skipped", "selector", sel, "state", state.String())
		}
		outcomes = append(outcomes, ToggleOutcome{Selector: sel, State: state})
	}
	return outcomes, nil
}
