package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/listingscout/internal/listing"
)

func TestRuleSetScanCountsEachPatternOnce(t *testing.T) {
	rules := RuleSet{{"battery", 2}, {"battery life", 3}, {"gaming", -3}, {"Battery", 5}}

	assert.Equal(t, 5.0, rules.Scan("Battery battery BATTERY LIFE"))
	assert.Equal(t, -1.0, rules.Scan("gaming rig with battery"))
	assert.Equal(t, 0.0, rules.Scan("nothing relevant"))
}

func TestRuleSetMaxTakesBestTier(t *testing.T) {
	cpu := DefaultLaptopRules().CPU

	assert.Equal(t, 8.0, cpu.Max("Core i5 or i7 options"))
	assert.Equal(t, 11.0, cpu.Max("MacBook Pro M3 (also fits M1 cases)"))
	assert.Equal(t, 0.0, cpu.Max("Celeron N4020"))
}

func laptop(title, desc string, price *listing.Price) listing.Listing {
	return listing.New(listing.SourceSalem, listing.KindLaptop, listing.PartialListing{
		CanonicalURL: "https://shop.test/products/" + title,
		Title:        title,
		Description:  desc,
		Price:        price,
	})
}

func TestLaptopScoreDecreasesWithPrice(t *testing.T) {
	s := NewLaptopScorer(DefaultLaptopRules())
	desc := "Lightweight ultrabook, i7, 16GB RAM, 512GB NVMe SSD, long battery life"

	cheap := s.Score(laptop("x", desc, &listing.Price{Amount: 500, Currency: "USD"}))
	pricey := s.Score(laptop("x", desc, &listing.Price{Amount: 5000, Currency: "USD"}))

	assert.Greater(t, cheap[listing.ScoreBusiness], pricey[listing.ScoreBusiness])
	assert.Greater(t, cheap[listing.ScoreServer], pricey[listing.ScoreServer])
}

func TestLaptopScoreValues(t *testing.T) {
	s := NewLaptopScorer(DefaultLaptopRules())

	scores := s.Score(laptop("Gaming laptop RTX 3060", "i7 with RGB keyboard", &listing.Price{Amount: 990}))
	// cpu 8, gaming -3, rgb -2, 3060 -2
	assert.InDelta(t, 1.0/math.Log(1000), scores[listing.ScoreBusiness], 1e-9)

	unknown := s.Score(laptop("ThinkPad", "32GB ECC, proxmox ready", nil))
	assert.InDelta(t, 10.0/math.Log(1010), unknown[listing.ScoreServer], 1e-9)
}

func job(title, company, desc string) listing.Listing {
	return listing.New(listing.SourceYC, listing.KindJob, listing.PartialListing{
		CanonicalURL: "https://jobs.test/" + title,
		Title:        title,
		Company:      company,
		Description:  desc,
	})
}

func TestInferTagsFromKeywords(t *testing.T) {
	tags := NewTagInferer(DefaultTagRules()).Infer(job(
		"Backend Engineering Intern", "ExampleCo",
		"Work on Python APIs and deploy to AWS using Docker.",
	))

	assert.Equal(t, []string{"AWS", "Python", "Docker"}, tags)
}

func TestInferTagsKeepsCategoriesDiverse(t *testing.T) {
	inferer := NewTagInferer(DefaultTagRules())
	tags := inferer.Infer(job("Software Intern", "Acme",
		"You will write Python, Java, Go, Rust and TypeScript services deployed on AWS."))

	require.GreaterOrEqual(t, len(tags), 3)
	assert.LessOrEqual(t, len(tags), 7)
	assert.Contains(t, tags, "AWS")
	languages := 0
	for _, tag := range tags {
		switch tag {
		case "Python", "Java", "Go", "Rust", "TypeScript":
			languages++
		}
	}
	assert.Less(t, languages, 5)
}

func TestInferTagsPrefersBigrams(t *testing.T) {
	tags := NewTagInferer(DefaultTagRules()).Infer(job("Mobile Intern", "Acme",
		"Ship React Native screens and set up GitHub Actions pipelines"))

	assert.Contains(t, tags, "React Native")
	assert.Contains(t, tags, "GitHub Actions")
	assert.NotContains(t, tags, "React")
}

func TestInferTagsFallsBackToRoleTemplate(t *testing.T) {
	inferer := NewTagInferer(DefaultTagRules())

	assert.Equal(t,
		[]string{"TypeScript", "React", "CSS", "Design Systems"},
		inferer.Infer(job("Frontend Intern", "Acme", "Help us build beautiful things")))

	assert.Equal(t,
		[]string{"JavaScript", "React", "Node.js", "SQL", "Machine Learning Foundations"},
		inferer.Infer(job("Summer Intern", "Orbital.ai", "Join a small team")))
}

func TestInferTagsTopsUpShortLists(t *testing.T) {
	tags := NewTagInferer(DefaultTagRules()).Infer(job("Data Intern", "Acme", "Mostly Pandas work"))

	assert.Equal(t, []string{"Pandas", "Python", "SQL"}, tags)
}

func TestEngineIsDeterministic(t *testing.T) {
	in := []listing.Listing{
		job("Platform Intern", "Acme", "Kubernetes, Terraform, Go, SQL, Figma and OAuth flows on GCP"),
		laptop("Dell XPS 13", "i7 ultrabook OLED 1TB", &listing.Price{Amount: 899}),
	}

	first := DefaultEngine().ScoreAll(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, DefaultEngine().ScoreAll(in))
	}
	assert.Nil(t, in[0].Tags, "input is not mutated")
	assert.NotEmpty(t, first[0].Tags)
	assert.Nil(t, first[0].Scores)
	assert.Contains(t, first[1].Scores, listing.ScoreBusiness)
}

func TestTopN(t *testing.T) {
	mk := func(id string, score float64) listing.Listing {
		return listing.Listing{ID: id, Scores: map[string]float64{listing.ScoreServer: score}}
	}
	in := []listing.Listing{mk("a", 1), mk("b", 3), mk("c", 2), mk("d", 3), {ID: "job"}}

	top := TopN(in, listing.ScoreServer, 3)

	require.Len(t, top, 3)
	assert.Equal(t, []string{"b", "d", "c"}, []string{top[0].ID, top[1].ID, top[2].ID})
}
