package query

// NewsDataQuery is the fixed boolean query sent to the NewsData-style API.
// The API supports OR operators and quoted phrases; the phrase list covers
// the Italian fertility/demographics vocabulary this pipeline tracks.
const NewsDataQuery = `fertilità OR natalità OR denatalità OR ` +
	`"calo demografico" OR "invecchiamento popolazione" OR ` +
	`"tasso di natalità" OR infertilità OR fecondità`
