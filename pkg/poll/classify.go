/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package poll

// Classifier maps a peer-reported state onto a Status.
type Classifier func(state string) Status

// States builds a Classifier from the terminal vocabularies of one record kind.
// Anything not listed is Pending.
func States(success []string, failure []string) Classifier {
	s := make(map[string]struct{}, len(success))
	for _, st := range success {
		s[st] = struct{}{}
	}

	f := make(map[string]struct{}, len(failure))
	for _, st := range failure {
		f[st] = struct{}{}
	}

	return func(state string) Status {
		if _, ok := s[state]; ok {
			return Success
		}

		if _, ok := f[state]; ok {
			return Failure
		}

		return Pending
	}
}
