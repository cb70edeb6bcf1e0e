package faker

// Name pools for synthetic Danish identities. Drawn from common Danish
// given names and surnames; the neutral pool holds names used across
// genders.
var maleGivenNames = []string{
	"Jens", "Peter", "Lars", "Michael", "Henrik",
	"Thomas", "Søren", "Jan", "Niels", "Christian",
	"Martin", "Anders", "Morten", "Jesper", "Mads",
	"Rasmus", "Frederik", "Emil", "Oliver", "William",
}

var femaleGivenNames = []string{
	"Anne", "Kirsten", "Mette", "Hanne", "Anna",
	"Helle", "Susanne", "Lene", "Maria", "Marianne",
	"Camilla", "Louise", "Pia", "Charlotte", "Ida",
	"Emma", "Sofie", "Freja", "Clara", "Laura",
}

var neutralGivenNames = []string{
	"Alex", "Andrea", "Charlie", "Eli", "Kim",
	"Noa", "Robin", "Sam", "Sascha", "Nikola",
}

var surnames = []string{
	"Nielsen", "Jensen", "Hansen", "Pedersen", "Andersen",
	"Christensen", "Larsen", "Sørensen", "Rasmussen", "Jørgensen",
	"Petersen", "Madsen", "Kristensen", "Olsen", "Thomsen",
	"Christiansen", "Poulsen", "Johansen", "Møller", "Mortensen",
}

var streetNames = []string{
	"Hovedgaden", "Søndergade", "Nørregade", "Vestergade", "Østergade",
	"Kirkevej", "Skolevej", "Bakkevej", "Strandvejen", "Parkvej",
	"Birkevej", "Egevej", "Mosevej", "Engvej", "Havnegade",
}

var cities = []string{
	"København", "Aarhus", "Odense", "Aalborg", "Esbjerg",
	"Randers", "Kolding", "Horsens", "Vejle", "Roskilde",
	"Herning", "Silkeborg", "Næstved", "Fredericia", "Viborg",
}

var emailDomains = []string{
	"example.com", "example.org", "example.net",
}
