package domain

// odds.go — conversiones de cuotas americanas y de-margining.
//
// Todas las degeneraciones numéricas devuelven un valor neutro documentado,
// nunca NaN: cuota 0 → probabilidad 0.5, vig imposible → probabilidades sin
// ajustar.

// ImpliedProbability convierte una cuota americana a probabilidad implícita.
//
//	o > 0:  p = 100 / (o + 100)
//	o < 0:  p = -o / (-o + 100)
//	o = 0:  caso degenerado, devuelve 0.5 (cuota sin información)
func ImpliedProbability(americanOdds float64) float64 {
	switch {
	case americanOdds > 0:
		return 100 / (americanOdds + 100)
	case americanOdds < 0:
		return -americanOdds / (-americanOdds + 100)
	default:
		return 0.5
	}
}

// DecimalOdds convierte una cuota americana a decimal (payout por unidad).
// Cuota 0 devuelve 2.0 (el even money que corresponde a p=0.5).
func DecimalOdds(americanOdds float64) float64 {
	switch {
	case americanOdds > 0:
		return 1 + americanOdds/100
	case americanOdds < 0:
		return 1 + 100/-americanOdds
	default:
		return 2
	}
}

// Vig devuelve el margen del bookmaker dado un mercado a dos lados:
// suma de probabilidades implícitas menos 1.
func Vig(oddsA, oddsB float64) float64 {
	return ImpliedProbability(oddsA) + ImpliedProbability(oddsB) - 1
}

// NoVigProbability elimina el margen de la probabilidad implícita del lado A:
// p_novig = implied / (1 + vig). Si ambas cuotas son 0 el mercado no tiene
// información y se devuelve la implícita sin ajustar (guard de división).
func NoVigProbability(oddsA, oddsB float64) float64 {
	implied := ImpliedProbability(oddsA)
	total := 1 + Vig(oddsA, oddsB)
	if total <= 0 {
		return implied
	}
	return implied / total
}
