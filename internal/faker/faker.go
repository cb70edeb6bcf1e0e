package faker

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/mkaltoft/scrambletron/internal/gender"
	"github.com/mkaltoft/scrambletron/internal/pseudonym"
)

// Generator produces Danish-looking synthetic values for the replacer.
// A non-zero seed makes the output deterministic, which the tests rely
// on.
type Generator struct {
	fake *gofakeit.Faker
}

var _ pseudonym.ValueGenerator = (*Generator)(nil)

// New creates a generator. Seed zero draws a random seed.
func New(seed int64) *Generator {
	return &Generator{
		fake: gofakeit.New(seed),
	}
}

// PersonName returns a given name matching the bucket plus a surname.
func (g *Generator) PersonName(bucket gender.Bucket) string {
	var given string
	switch bucket {
	case gender.BucketMale:
		given = g.fake.RandomString(maleGivenNames)
	case gender.BucketFemale:
		given = g.fake.RandomString(femaleGivenNames)
	default:
		given = g.fake.RandomString(neutralGivenNames)
	}
	return given + " " + g.fake.RandomString(surnames)
}

// Address returns a single-line Danish-style street address.
func (g *Generator) Address() string {
	street := g.fake.RandomString(streetNames)
	number := g.fake.Number(1, 120)
	postcode := g.fake.Number(1000, 9799)
	city := g.fake.RandomString(cities)
	return fmt.Sprintf("%s %d, %d %s", street, number, postcode, city)
}

// PhoneNumber returns a Danish mobile-style number with country code.
// Danish subscriber numbers never start with 0 or 1.
func (g *Generator) PhoneNumber() string {
	return fmt.Sprintf("+45 %02d %02d %02d %02d",
		g.fake.Number(20, 99),
		g.fake.Number(0, 99),
		g.fake.Number(0, 99),
		g.fake.Number(0, 99))
}

// Email returns an address under a reserved example domain so
// generated values can never reach a real mailbox.
func (g *Generator) Email() string {
	username := strings.ToLower(g.fake.Username())
	return username + "@" + g.fake.RandomString(emailDomains)
}

// IPv4 returns a random IPv4 address.
func (g *Generator) IPv4() string {
	return g.fake.IPv4Address()
}
