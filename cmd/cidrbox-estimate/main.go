/*
 * Copyright (C) 2022 IBM, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package main

import (
	"fmt"
	"net/netip"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cidrbox/cidrbox/pkg/inet"
	"github.com/cidrbox/cidrbox/pkg/selectivity"
	"github.com/cidrbox/cidrbox/pkg/strategy"
)

var (
	buildVersion = "unknown"
	buildDate    = "unknown"
	cfgFile      string
	logLevel     string
	envPrefix    = "CIDRBOX"
	opts         options
)

type options struct {
	StatsFile string
	Constant  string
	Operator  string
	Output    string
}

// statsFile is the on-disk JSON shape of a column statistics sample.
// Networks are CIDR strings.
type statsFile struct {
	NullFrac  float64 `json:"nullFrac"`
	NDistinct float64 `json:"ndistinct"`
	MCVs      []struct {
		Value string  `json:"value"`
		Freq  float64 `json:"freq"`
	} `json:"mcvs"`
	Histogram []string `json:"histogram"`
}

type estimateOutput struct {
	Operator    string  `json:"operator"`
	Constant    string  `json:"constant"`
	Selectivity float64 `json:"selectivity"`
}

// rootCmd represents the root command
var rootCmd = &cobra.Command{
	Use:   "cidrbox-estimate",
	Short: "Estimate network predicate selectivity from column statistics",
}

// initConfig use config file and ENV variables if set.
func initConfig() {
	v := viper.New()

	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	}

	// Read environment variables that match prefix
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// If a config file is found, read it in.
	cfgErr := v.ReadInConfig()

	bindFlags(rootCmd, v)

	// initialize logger
	initLogger()

	if cfgFile != "" && cfgErr != nil {
		log.Errorf("Read config error: %v", cfgErr)
	}
}

func initLogger() {
	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		ll = log.ErrorLevel
	}
	log.SetLevel(ll)
	log.SetFormatter(&log.TextFormatter{DisableColors: false, FullTimestamp: true, PadLevelText: true, DisableQuote: true})
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		_ = v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix))

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
		}
	})
}

func initFlags() {
	cobra.OnInitialize(initConfig)
	rootCmd.Run = func(_ *cobra.Command, _ []string) {
		run()
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "Log level: debug, info, warning, error")
	rootCmd.PersistentFlags().StringVar(&opts.StatsFile, "stats", "", "JSON file with the column statistics sample")
	rootCmd.PersistentFlags().StringVar(&opts.Constant, "constant", "", "Constant side of the predicate, in CIDR notation")
	rootCmd.PersistentFlags().StringVar(&opts.Operator, "operator", "overlaps", "Predicate: sub, subeq, overlaps, supeq, sup, adjacent")
	rootCmd.PersistentFlags().StringVar(&opts.Output, "output", "text", "Output format: text, json")
}

func main() {
	// Initialize flags (command line parameters)
	initFlags()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func parseNetwork(s string) (inet.Network, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		// Plain addresses are taken as host networks.
		addr, addrErr := netip.ParseAddr(s)
		if addrErr != nil {
			return inet.Network{}, fmt.Errorf("parsing network %q: %w", s, err)
		}
		prefix = netip.PrefixFrom(addr, addr.BitLen())
	}
	return inet.FromPrefix(prefix), nil
}

func loadSample(path string) (*selectivity.Sample, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stats file: %w", err)
	}

	var parsed statsFile
	jsonConfig := jsoniter.ConfigCompatibleWithStandardLibrary
	if err := jsonConfig.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing stats file: %w", err)
	}

	sample := selectivity.Sample{
		NullFrac:  parsed.NullFrac,
		NDistinct: parsed.NDistinct,
	}
	for _, mcv := range parsed.MCVs {
		n, err := parseNetwork(mcv.Value)
		if err != nil {
			return nil, fmt.Errorf("stats MCV: %w", err)
		}
		sample.MCVs = append(sample.MCVs, selectivity.MCV{Value: n, Freq: mcv.Freq})
	}
	for _, s := range parsed.Histogram {
		n, err := parseNetwork(s)
		if err != nil {
			return nil, fmt.Errorf("stats histogram: %w", err)
		}
		sample.Histogram = append(sample.Histogram, n)
	}
	return &sample, nil
}

var operatorStrategies = map[string]strategy.Number{
	"sub":      strategy.Sub,
	"subeq":    strategy.SubEqual,
	"overlaps": strategy.Overlap,
	"supeq":    strategy.SuperEqual,
	"sup":      strategy.Super,
}

func run() {
	log.Debugf("starting %s; build version: %s, build date: %s", rootCmd.Use, buildVersion, buildDate)

	if opts.Constant == "" {
		log.Error("a constant network is required, see --constant")
		os.Exit(1)
	}
	constant, err := parseNetwork(opts.Constant)
	if err != nil {
		log.Errorf("bad constant: %v", err)
		os.Exit(1)
	}

	var sample *selectivity.Sample
	if opts.StatsFile != "" {
		sample, err = loadSample(opts.StatsFile)
		if err != nil {
			log.Errorf("error in reading statistics: %v", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no statistics given, estimates fall back to defaults")
	}

	var estimate float64
	if opts.Operator == "adjacent" {
		estimate, err = selectivity.EstimateAdjacent(sample, &constant)
	} else {
		strat, ok := operatorStrategies[opts.Operator]
		if !ok {
			log.Errorf("unknown operator %q", opts.Operator)
			os.Exit(1)
		}
		estimate, err = selectivity.EstimateInclusion(sample, &constant, strat)
	}
	if err != nil {
		log.Errorf("estimation failed: %v", err)
		os.Exit(1)
	}

	switch opts.Output {
	case "json":
		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(estimateOutput{
			Operator:    opts.Operator,
			Constant:    constant.String(),
			Selectivity: estimate,
		})
		if err != nil {
			log.Errorf("encoding output: %v", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	default:
		fmt.Printf("%s %s %s: selectivity %.6f\n", "column", opts.Operator, constant.String(), estimate)
	}
}
