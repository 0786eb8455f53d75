/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scoir/canis-exchange/pkg/client/rest"
	"github.com/scoir/canis-exchange/pkg/config"
	"github.com/scoir/canis-exchange/pkg/framework/context"
	"github.com/scoir/canis-exchange/pkg/util"
)

var (
	cfgFile    string
	recordFile string

	prov     *context.Provider
	recorder *rest.Recorder
)

var rootCmd = &cobra.Command{
	Use:   "canis-exchange",
	Short: "Drives credential exchanges between an issuer, a verifier and a holder.",
	Long: `Drives credential exchanges between an issuer, a verifier and a holder.

 Every run is a session: an invitation is minted, handed to the holder and both
 peers are polled until the exchange completes or fails.`,
	SilenceUsage:      true,
	PersistentPreRunE: initProvider,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return finish()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/canis/canis-exchange.yaml)")
	rootCmd.PersistentFlags().StringVar(&recordFile, "record", "", "write every agent request made during the run to this file")
}

func initProvider(_ *cobra.Command, _ []string) error {
	vp := &config.ViperConfigProvider{DefaultConfigName: config.DefaultConfigName}

	conf, err := vp.Load(cfgFile)
	if err != nil {
		return err
	}

	lc, err := conf.Log()
	if err != nil {
		return err
	}
	util.ConfigureLogging(lc.Level, lc.Pretty)

	opts := []context.Option{context.WithLogger(log.Logger)}
	if recordFile != "" {
		recorder = rest.NewRecorder()
		opts = append(opts, context.WithRecorder(recorder))
	}

	prov = context.NewProvider(conf, opts...)
	return nil
}

func finish() error {
	if prov == nil {
		return nil
	}

	defer func() {
		if err := prov.Close(); err != nil {
			log.Warn().Err(err).Msg("unable to close provider")
		}
	}()

	if recorder == nil {
		return nil
	}

	d, err := json.MarshalIndent(recorder.Requests(), "", "  ")
	if err != nil {
		return err
	}

	return ioutil.WriteFile(recordFile, d, 0644)
}
