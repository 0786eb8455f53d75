/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package util

import (
	"fmt"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func WriteSuccess(w http.ResponseWriter, data []byte) {
	WriteJSON(w, http.StatusOK, data)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, []byte(fmt.Sprintf(`{"error":%q}`, msg)))
}

func WriteErrorf(w http.ResponseWriter, status int, msg string, args ...interface{}) {
	WriteError(w, status, fmt.Sprintf(msg, args...))
}
