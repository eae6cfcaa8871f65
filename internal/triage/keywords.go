package triage

// Static signal tables for the deterministic pre-filter. All matching is
// case-insensitive substring matching against the lowercased business
// purpose, company name, or city. The tables are pure data; evaluation order
// lives in prefilter.go.

// hardSkipKeywords identify unambiguously non-technology sectors. A match in
// either purpose or name rejects the candidate before any classifier cost.
var hardSkipKeywords = []string{
	"gastronomie",
	"restaurant",
	"café",
	"bar",
	"imbiss",
	"friseur",
	"kosmetik",
	"beauty",
	"nail",
	"fitness",
	"yoga",
	"wellness",
	"massage",
	"steuerberater",
	"rechtsanwalt",
	"notar",
	"kanzlei",
	"fahrschule",
	"fotograf",
	"reisebüro",
	"handwerk",
	"tischler",
	"schreiner",
	"maler",
	"garten",
	"landschaftsbau",
	"tierarzt",
	"tierpflege",
	"supermarkt",
	"lebensmittel",
	"bäckerei",
	"metzgerei",
	"apotheke",
	"optiker",
	"zahnarzt",
	"arztpraxis",
	"physiotherapie",
	"pflegedienst",
	"bestattung",
	"taxi",
	"umzug",
}

// redFlagKeywords are service/consulting/holding/trading patterns in the
// business purpose. Each match produces one red flag.
var redFlagKeywords = []string{
	// Consulting/Services
	"beratung",
	"consulting",
	"agentur",
	"dienstleistung",
	"vermittlung",
	"coaching",
	"training",
	"schulung",
	"workshop",
	// Holding/Asset management
	"vermögensverwaltung",
	"beteiligung",
	"holding",
	"verwaltung eigenen vermögens",
	"halten und verwalten",
	// Trade/Retail
	"handel mit",
	"import und export",
	"großhandel",
	"einzelhandel",
	"vertrieb von",
	// Real estate
	"immobilien",
	"grundstücks",
	"hausverwaltung",
	// Food/Hospitality
	"gastronomie",
	"restaurant",
	"catering",
	// Marketing
	"marketing",
	"werbung",
	"pr-agentur",
	"social media",
}

// greenKeyword pairs a product/technology term with its flag category.
type greenKeyword struct {
	keyword  string
	category string
}

// greenFlagKeywords are matched against purpose or name. Each match produces
// one green flag with the fixed category.
var greenFlagKeywords = []greenKeyword{
	// Hardware/Physical products
	{"sensor", "Hardware"},
	{"roboter", "Robotik"},
	{"robotik", "Robotik"},
	{"batterie", "Energie"},
	{"chip", "Hardware"},
	{"halbleiter", "Hardware"},
	{"laser", "Hardware"},
	{"optik", "Hardware"},
	{"antrieb", "Hardware"},
	{"motor", "Hardware"},
	{"drohne", "Robotik"},
	{"satellit", "Aerospace"},
	{"rakete", "Aerospace"},
	// Biotech/Medtech
	{"medizinprodukt", "Medtech"},
	{"diagnostik", "Medtech"},
	{"biotech", "Biotech"},
	{"gentechnik", "Biotech"},
	{"pharma", "Biotech"},
	{"therapeut", "Medtech"},
	{"implant", "Medtech"},
	// Energy/Cleantech
	{"wasserstoff", "Energie"},
	{"solar", "Energie"},
	{"photovoltaik", "Energie"},
	{"windkraft", "Energie"},
	{"brennstoffzelle", "Energie"},
	{"elektrolys", "Energie"},
	// Software with specifics
	{"maschinelles lernen", "AI/ML"},
	{"machine learning", "AI/ML"},
	{"computer vision", "AI/ML"},
	{"bildverarbeitung", "AI/ML"},
	{"spracherkennung", "AI/ML"},
	{"nlp", "AI/ML"},
	// Manufacturing
	{"fertigung", "Industrial"},
	{"produktion von", "Industrial"},
	{"herstellung von", "Industrial"},
	{"3d-druck", "Industrial"},
	{"additive fertigung", "Industrial"},
	// Specific domains
	{"quantencomputer", "Hardware"},
	{"quantentechnologie", "Hardware"},
	{"krypto", "Hardware"},
	{"cybersecurity", "Security"},
	{"verschlüsselung", "Security"},
}

// universityCity links a city substring to the technology institutions near
// it. The first institution in the list is named in the proximity flag.
type universityCity struct {
	city string
	unis []string
}

var universityCities = []universityCity{
	{"münchen", []string{"TUM", "LMU"}},
	{"aachen", []string{"RWTH"}},
	{"karlsruhe", []string{"KIT"}},
	{"berlin", []string{"TU Berlin", "FU Berlin", "HU Berlin"}},
	{"stuttgart", []string{"Uni Stuttgart"}},
	{"darmstadt", []string{"TU Darmstadt"}},
	{"dresden", []string{"TU Dresden"}},
	{"erlangen", []string{"FAU"}},
	{"freiburg", []string{"Uni Freiburg"}},
	{"heidelberg", []string{"Uni Heidelberg"}},
	{"garching", []string{"TUM"}},
	{"martinsried", []string{"LMU"}},
	{"ottobrunn", []string{"TUM/DLR"}},
	{"gilching", []string{"TUM/DLR"}},
	{"weßling", []string{"DLR"}},
}

// deepTechNameTokens are deep-tech-sounding fragments in company names.
// Only the first match yields a (yellow) flag; names are weak evidence.
var deepTechNameTokens = []string{
	"tech",
	"labs",
	"robotics",
	"systems",
	"dynamics",
	"ai",
	"bio",
	"med",
	"quantum",
	"nano",
	"aero",
}

// ambiguousTerms are buzzwords that mean nothing without specifics. The
// first match not already covered by a green flag yields one yellow flag.
var ambiguousTerms = []string{
	"entwicklung",
	"forschung",
	"innovation",
	"digital",
	"software",
	"technologie",
	"lösung",
	"plattform",
	"system",
}
