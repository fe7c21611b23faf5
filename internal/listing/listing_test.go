package listing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeIDIsStable(t *testing.T) {
	a := MakeID(SourceYC, "https://www.ycombinator.com/companies/acme/jobs/1")
	b := MakeID(SourceYC, "https://www.ycombinator.com/companies/acme/jobs/1")
	c := MakeID(SourceStartupJobs, "https://www.ycombinator.com/companies/acme/jobs/1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestNewNormalizesAndTruncates(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(SourceSalem, KindLaptop, PartialListing{
		CanonicalURL: "https://salemgaming.com/products/latitude",
		Title:        "  Dell \n Latitude 7420 ",
		Description:  strings.Repeat("a ", 4000),
		FetchedAt:    fetched,
	})

	assert.Equal(t, "Dell Latitude 7420", l.Title)
	assert.Equal(t, StatusUnknown, l.Status)
	assert.LessOrEqual(t, len([]rune(l.Description)), MaxDescriptionLength)
	assert.Nil(t, l.Price)
	assert.Equal(t, fetched, l.FetchedAt)
	assert.Equal(t, MakeID(SourceSalem, "https://salemgaming.com/products/latitude"), l.ID)

	job := New(SourceYC, KindJob, PartialListing{CanonicalURL: "https://x.test/j"})
	assert.Equal(t, StatusOpen, job.Status)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$649.99", 649.99},
		{"From $899", 899},
		{"Sale price $1,299.00 Regular price $1,499.00", 1299},
		{"now only $ 75", 75},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := ParsePrice(tt.in)
			require.NotNil(t, p)
			assert.InDelta(t, tt.want, p.Amount, 0.001)
			assert.Equal(t, "USD", p.Currency)
		})
	}

	assert.Nil(t, ParsePrice("Call for price"))
	assert.Nil(t, ParsePrice(""))
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusSoldOut, ParseStatus("SOLD OUT"))
	assert.Equal(t, StatusSoldOut, ParseStatus("Currently out of stock"))
	assert.Equal(t, StatusInStock, ParseStatus("In stock, ready to ship"))
	assert.Equal(t, StatusInStock, ParseStatus("Available"))
	assert.Equal(t, StatusUnknown, ParseStatus("Refurbished"))
}

func TestParseStatusNegativeWording(t *testing.T) {
	cases := map[string]Status{
		"Unavailable":                      StatusSoldOut,
		"Currently unavailable":            StatusSoldOut,
		"Not available":                    StatusSoldOut,
		"This item is no longer available": StatusSoldOut,
		"ThinkPad T14 $450.00 Unavailable": StatusSoldOut,
		"Available now, add to cart":       StatusInStock,
		"ThinkPad T14 $450.00 Add to cart": StatusInStock,
		"Availability varies by warehouse": StatusUnknown,
	}
	for text, want := range cases {
		assert.Equal(t, want, ParseStatus(text), text)
	}
}

func TestFilter(t *testing.T) {
	intern := Listing{Kind: KindJob, Title: "Software Engineering Intern", Company: "Acme", Description: "Go and Postgres"}
	senior := Listing{Kind: KindJob, Title: "Senior Backend Engineer", Company: "Beta", Description: "internal tools in Rust"}
	laptop := Listing{Kind: KindLaptop, Title: "ThinkPad"}

	f := Filter{JobType: JobTypeInternship}
	assert.Equal(t, []Listing{intern, laptop}, f.Apply([]Listing{intern, senior, laptop}))

	f = Filter{Keywords: []string{"rust", "kotlin"}}
	assert.Equal(t, []Listing{senior, laptop}, f.Apply([]Listing{intern, senior, laptop}))

	all := []Listing{intern, senior}
	assert.Equal(t, all, Filter{}.Apply(all))
}

func TestFilterJobTypes(t *testing.T) {
	intern := Listing{Kind: KindJob, Title: "Data Intern", Description: "Summer program"}
	contract := Listing{Kind: KindJob, Title: "iOS Contractor", Description: "Six month engagement"}
	partTime := Listing{Kind: KindJob, Title: "Frontend Developer", Description: "Part-time, 20 hours a week"}
	fullTime := Listing{Kind: KindJob, Title: "Backend Engineer", Description: "Build our API platform"}
	all := []Listing{intern, contract, partTime, fullTime}

	assert.Equal(t, []Listing{intern}, Filter{JobType: JobTypeInternship}.Apply(all))
	assert.Equal(t, []Listing{contract}, Filter{JobType: JobTypeContract}.Apply(all))
	assert.Equal(t, []Listing{partTime}, Filter{JobType: JobTypePartTime}.Apply(all))
	assert.Equal(t, []Listing{fullTime}, Filter{JobType: JobTypeFullTime}.Apply(all))
}

func TestFilterRoleCategory(t *testing.T) {
	backend := Listing{Kind: KindJob, Title: "Back-end Engineering Intern"}
	mobile := Listing{Kind: KindJob, Title: "Android Intern", Description: "Kotlin and a REST api"}
	ml := Listing{Kind: KindJob, Title: "Machine Learning Intern"}
	designer := Listing{Kind: KindJob, Title: "Product Designer Intern"}
	all := []Listing{backend, mobile, ml, designer}

	assert.Equal(t, []Listing{backend}, Filter{RoleCategory: RoleBackend}.Apply(all), "role looks at the title only")
	assert.Equal(t, []Listing{mobile}, Filter{RoleCategory: RoleMobile}.Apply(all))
	assert.Equal(t, []Listing{ml}, Filter{RoleCategory: RoleAI}.Apply(all))
	assert.Equal(t, []Listing{designer}, Filter{RoleCategory: RoleDesign}.Apply(all))

	laptop := Listing{Kind: KindLaptop, Title: "ThinkPad"}
	combined := Filter{RoleCategory: RoleMobile, JobType: JobTypeInternship}
	assert.Equal(t, []Listing{mobile, laptop}, combined.Apply(append(all, laptop)))
}

func TestFilterSearchQuery(t *testing.T) {
	assert.Equal(t, "internship", Filter{}.SearchQuery())
	assert.Equal(t, "part time UX UI designer figma", Filter{JobType: JobTypePartTime, RoleCategory: RoleDesign, Keywords: []string{" figma "}}.SearchQuery())
	assert.True(t, ValidJobType(""))
	assert.True(t, ValidJobType("Contract"))
	assert.False(t, ValidJobType("seasonal"))
	assert.False(t, ValidRoleCategory("sales"))
	assert.Len(t, RoleCategories(), 9)
}
