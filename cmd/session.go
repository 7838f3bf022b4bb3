package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/driver/webdriver"
	"github.com/diaryscope/diaryscope/pkg/screen"
	"github.com/spf13/viper"
)

// capabilities builds the session capabilities from the appium.* keys.
// Entries of appium.extra are name=value pairs, sent as given; viper lowercases
// map keys, which capability names do not survive.
func capabilities() (map[string]interface{}, error) {
	caps := map[string]interface{}{
		"platformName":          viper.GetString("appium.platform"),
		"appium:automationName": viper.GetString("appium.automation"),
		"appium:appPackage":     viper.GetString("appium.package"),
		"appium:noReset":        viper.GetBool("appium.noreset"),
	}
	if device := viper.GetString("appium.device"); device != "" {
		caps["appium:udid"] = device
	}
	if activity := viper.GetString("appium.activity"); activity != "" {
		caps["appium:appActivity"] = activity
	}
	for _, kv := range viper.GetStringSlice("appium.extra") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad appium.extra entry %q, want name=value", kv)
		}
		caps[name] = capabilityValue(value)
	}
	return caps, nil
}

func capabilityValue(s string) interface{} {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func newClient() (*webdriver.Client, error) {
	caps, err := capabilities()
	if err != nil {
		return nil, err
	}
	return webdriver.New(webdriver.Config{
		URL:          viper.GetString("appium.url"),
		Capabilities: caps,
		Timeout:      viper.GetDuration("timeouts.interaction"),
		Retries:      viper.GetInt("appium.retries"),
	}), nil
}

// openSession wraps a WebDriver session in a screen view. With an empty
// sessionID a new session is started and callers must Close the returned
// client; otherwise the running session is attached to and left open.
func openSession(ctx context.Context, sessionID string) (*webdriver.Client, *screen.View, error) {
	client, err := newClient()
	if err != nil {
		return nil, nil, err
	}

	utils.Log.Debugf("Connecting to %s", viper.GetString("appium.url"))
	if err := client.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("appium server: %w", err)
	}
	if sessionID != "" {
		client.Attach(sessionID)
		utils.Log.Debugf("Attached to session %s", sessionID)
	} else {
		if err := client.NewSession(ctx); err != nil {
			return nil, nil, err
		}
		utils.Log.Debugf("Session %s started", client.SessionID())
	}

	view := &screen.View{
		Driver:  client,
		Timeout: viper.GetDuration("timeouts.interaction"),
		Settle:  viper.GetDuration("timeouts.settle"),
	}
	return client, view, nil
}

func archivePath() (string, error) {
	return utils.AbsArchivePath(viper.GetString("archive.path"))
}
