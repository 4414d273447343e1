package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RegisterFlags defines one flag per config key on fs, defaulting to
// NewConfig.
func RegisterFlags(fs *pflag.FlagSet) {
	def := NewConfig()

	fs.String(KeySiteURL, "", "News site front page URL")
	fs.StringP(KeyPayload, "p", "", "JSON work item with Month, Phrase and Category")
	fs.String(KeyPhrase, def.Phrase, "Search phrase")
	fs.String(KeyCategory, def.Category, "Search category")
	fs.IntP(KeyMonths, "m", def.Months, "Months of results to keep; 0 and 1 mean the current month")

	fs.StringP(KeyOutputDir, "o", "", "Directory for the report and images (default $"+ArtifactsEnv+", then the XDG data dir)")
	fs.String(KeyReportFile, "", "Report file name (default data.<format>)")
	fs.String(KeyReportFormat, def.ReportFormat, "Report format: xlsx or csv")
	fs.String(KeySummaryFormat, def.SummaryFormat, "Summary output: text, json, html or markdown")
	fs.String(KeySelectors, "", "Selector YAML overriding the built-in table")

	fs.Bool(KeyHeadless, def.Headless, "Run the browser headless")
	fs.String(KeyChromePath, "", "Chrome executable (default: search PATH)")
	fs.String(KeyUserAgent, def.UserAgent, "User-Agent for the browser and image requests (empty picks a random desktop UA)")
	fs.Duration(KeyActionTimeout, def.ActionTimeout, "Timeout for each browser action")

	fs.Duration(KeyNavigateDelay, def.NavigateDelay, "Wait after opening the site")
	fs.Duration(KeyActionDelay, def.ActionDelay, "Wait before each click")
	fs.Duration(KeySearchDelay, def.SearchDelay, "Wait after submitting the search")
	fs.Duration(KeyFilterGroupDelay, def.FilterGroupDelay, "Wait between the from and to date pickers")
	fs.Duration(KeyFilterDelay, def.FilterDelay, "Wait after applying the date filter")
	fs.Duration(KeyLoadMoreDelay, def.LoadMoreDelay, "Wait after each load-more click")
	fs.Int(KeyMaxLoadMore, def.MaxLoadMore, "Maximum load-more clicks (0 = until exhausted)")

	fs.Duration(KeyImageTimeout, def.ImageTimeout, "Timeout for each image download")
	fs.Float64(KeyImageRPS, def.ImageRPS, "Image requests per second (0 = unlimited)")
	fs.Float64(KeyImageJitter, def.ImageJitter, "Random extra gap between image requests, 0 to 1")
	fs.String(KeyFingerprint, def.Fingerprint, "TLS fingerprint for images: go, chrome, firefox, safari or random")
	fs.String(KeyProxyFile, "", "File with one proxy URL per line")
	fs.Bool(KeyRespectRobots, def.RespectRobots, "Check robots.txt before opening the site")
	fs.Int(KeyMetricsPort, def.MetricsPort, "Serve Prometheus metrics on this port (0 = off)")
}

// BindFlags makes changed flags in fs visible to v under their key names.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}
