/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"go/format"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlignedDeclarations(t *testing.T) {
	files := []string{
		"config.go",
		"../exchange/client.go",
	}

	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			src, err := ioutil.ReadFile(file)
			require.NoError(t, err)

			formatted, err := format.Source(src)
			require.NoError(t, err)
			require.Equal(t, string(formatted), string(src))
		})
	}
}
