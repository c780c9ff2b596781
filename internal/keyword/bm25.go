package keyword

import "math"

type okapi struct {
	c   *corpus
	s   settings
	idf map[string]float64
}

func newOkapi(c *corpus, s settings) *okapi {
	o := &okapi{c: c, s: s, idf: make(map[string]float64, len(c.docFreq))}
	n := float64(c.size)
	var sum float64
	var negative []string
	for _, term := range c.sortedTerms() {
		df := float64(c.docFreq[term])
		idf := math.Log(n-df+0.5) - math.Log(df+0.5)
		o.idf[term] = idf
		sum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(o.idf) > 0 {
		floor := s.epsilon * sum / float64(len(o.idf))
		for _, term := range negative {
			o.idf[term] = floor
		}
	}
	return o
}

func (o *okapi) Scores(query []string) []float64 {
	scores := make([]float64, o.c.size)
	for _, q := range query {
		idf, ok := o.idf[q]
		if !ok {
			continue
		}
		for i := range scores {
			tf := float64(o.c.termFreq[i][q])
			scores[i] += idf * (tf * (o.s.k1 + 1) / (tf + o.s.k1*o.c.lengthNorm(i, o.s.b)))
		}
	}
	return scores
}

type bm25L struct {
	c   *corpus
	s   settings
	idf map[string]float64
}

func newBM25L(c *corpus, s settings) *bm25L {
	l := &bm25L{c: c, s: s, idf: make(map[string]float64, len(c.docFreq))}
	n := float64(c.size)
	for term, df := range c.docFreq {
		l.idf[term] = math.Log(n+1) - math.Log(float64(df)+0.5)
	}
	return l
}

func (l *bm25L) Scores(query []string) []float64 {
	scores := make([]float64, l.c.size)
	for _, q := range query {
		idf, ok := l.idf[q]
		if !ok {
			continue
		}
		for i := range scores {
			tf := float64(l.c.termFreq[i][q])
			ctd := tf / l.c.lengthNorm(i, l.s.b)
			scores[i] += idf * (l.s.k1 + 1) * (ctd + l.s.delta) / (l.s.k1 + ctd + l.s.delta)
		}
	}
	return scores
}

type bm25Plus struct {
	c   *corpus
	s   settings
	idf map[string]float64
}

func newBM25Plus(c *corpus, s settings) *bm25Plus {
	p := &bm25Plus{c: c, s: s, idf: make(map[string]float64, len(c.docFreq))}
	n := float64(c.size)
	for term, df := range c.docFreq {
		p.idf[term] = math.Log((n + 1) / float64(df))
	}
	return p
}

func (p *bm25Plus) Scores(query []string) []float64 {
	scores := make([]float64, p.c.size)
	for _, q := range query {
		idf, ok := p.idf[q]
		if !ok {
			continue
		}
		for i := range scores {
			tf := float64(p.c.termFreq[i][q])
			scores[i] += idf * (p.s.delta + tf*(p.s.k1+1)/(p.s.k1*p.c.lengthNorm(i, p.s.b)+tf))
		}
	}
	return scores
}
