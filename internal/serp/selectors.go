package serp

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatePicker holds the three toggles that open a month, day or year list.
type DatePicker struct {
	Month string `yaml:"month"`
	Day   string `yaml:"day"`
	Year  string `yaml:"year"`
}

// Selectors maps each logical page element to a selector. Interaction
// selectors may be XPath or CSS; extraction selectors are CSS and are
// evaluated relative to one article container.
type Selectors struct {
	SearchToggle string `yaml:"search_toggle"`
	SearchInput  string `yaml:"search_input"`
	SearchSubmit string `yaml:"search_submit"`

	From DatePicker `yaml:"from"`
	To   DatePicker `yaml:"to"`
	// Option is a format template; %[1]s is the two-digit month or day.
	Option string `yaml:"option"`
	// YearOption is a format template; %s is the four-digit year.
	YearOption  string `yaml:"year_option"`
	ApplyFilter string `yaml:"apply_filter"`

	LoadMore    string `yaml:"load_more"`
	ResultCount string `yaml:"result_count"`

	Article     string `yaml:"article"`
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	ImageAttr   string `yaml:"image_attr"`
}

const pickerBase = "//*[@id='wrapper']/div[2]/div[1]/div/div[2]/div[3]"

// DefaultSelectors returns the table for the news site's search page.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchToggle: "//div[@class='search-toggle tablet-desktop']/a[@class='js-focus-search']",
		SearchInput:  "//input[@type='text' and (@aria-label='search foxnews.com' or @placeholder='Search foxnews.com') and @name='q']",
		SearchSubmit: "//input[@type='submit' and @aria-label='submit search' and @class='resp_site_submit']",

		From: DatePicker{
			Month: pickerBase + "/div[1]/div[1]",
			Day:   pickerBase + "/div[1]/div[2]/button",
			Year:  pickerBase + "/div[1]/div[3]/button",
		},
		To: DatePicker{
			Month: pickerBase + "/div[2]/div[1]/button",
			Day:   pickerBase + "/div[2]/div[2]/button",
			Year:  pickerBase + "/div[2]/div[3]/button",
		},
		Option:      "//li[@id='%[1]s' and @class='%[1]s' and .='%[1]s']",
		YearOption:  "//li[@id='%s']",
		ApplyFilter: "//div[@class='button']/a[text()='Search']",

		LoadMore:    "//span[text()='Load More']",
		ResultCount: "//div[@class='num-found']/span[2]/span",

		Article:     "article.article",
		Title:       "h2 a",
		Date:        "div.info header.info-header div.meta span.time",
		Description: "div.info div.content p.dek",
		Image:       "div.m img",
		ImageAttr:   "src",
	}
}

// ErrEmptySelector is returned by Validate for a blank table entry.
var ErrEmptySelector = errors.New("empty selector")

// Validate checks that every entry is set and the option templates take a
// value.
func (s Selectors) Validate() error {
	if err := checkFilled(reflect.ValueOf(s), ""); err != nil {
		return err
	}
	if !strings.Contains(s.Option, "%") {
		return fmt.Errorf("option template %q has no verb", s.Option)
	}
	if !strings.Contains(s.YearOption, "%") {
		return fmt.Errorf("year_option template %q has no verb", s.YearOption)
	}
	return nil
}

func checkFilled(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := range v.NumField() {
		name := prefix + t.Field(i).Tag.Get("yaml")
		switch f := v.Field(i); f.Kind() {
		case reflect.Struct:
			if err := checkFilled(f, name+"."); err != nil {
				return err
			}
		case reflect.String:
			if strings.TrimSpace(f.String()) == "" {
				return fmt.Errorf("%w: %s", ErrEmptySelector, name)
			}
		}
	}
	return nil
}

// OptionFor returns the list option selector for a two-digit month or day.
func (s Selectors) OptionFor(value string) string {
	return fmt.Sprintf(s.Option, value)
}

// YearOptionFor returns the list option selector for a four-digit year.
func (s Selectors) YearOptionFor(year string) string {
	return fmt.Sprintf(s.YearOption, year)
}

// LoadSelectors reads a YAML file and overlays it on DefaultSelectors, so a
// file only needs the keys it changes.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors: %w", err)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("parse selectors %s: %w", path, err)
	}
	if err := sel.Validate(); err != nil {
		return sel, fmt.Errorf("selectors %s: %w", path, err)
	}
	return sel, nil
}

// YAML encodes the table in the same shape LoadSelectors reads.
func (s Selectors) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
