/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package lifecycle

import (
	"fmt"
	"log"
)

type State string

const (
	StateDraft         State = "DRAFT"
	StateBuilt         State = "BUILT"
	StateLocallySealed State = "LOCALLY_SEALED"
	StateSubmitted     State = "SUBMITTED"
	StateConfirmed     State = "CONFIRMED"
	StateRejected      State = "REJECTED"
	StateFailed        State = "FAILED"
)

// transitions is forward-only. BUILT and LOCALLY_SEALED may reach CONFIRMED
// directly when a retry finds the identical record already committed.
var transitions = map[State][]State{
	StateDraft:         {StateBuilt, StateRejected},
	StateBuilt:         {StateLocallySealed, StateSubmitted, StateConfirmed, StateRejected, StateFailed},
	StateLocallySealed: {StateSubmitted, StateConfirmed, StateRejected, StateFailed},
	StateSubmitted:     {StateConfirmed, StateRejected, StateFailed},
}

func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateRejected || s == StateFailed
}

func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// instance tracks one certificate through issuance.
type instance struct {
	state  State
	key    string
	logger *log.Logger
}

func newInstance(logger *log.Logger) *instance {
	return &instance{state: StateDraft, logger: logger}
}

func (i *instance) advance(to State) error {
	if !CanTransition(i.state, to) {
		return fmt.Errorf("illegal transition %s -> %s", i.state, to)
	}
	i.logger.Printf("certificate %q: %s -> %s", i.key, i.state, to)
	i.state = to
	return nil
}
