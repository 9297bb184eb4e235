package strategy

// Basic strategy charts. Each row is indexed by dealer up-card value 2..11
// (11 is an Ace): H hit, S stand, D double (hit when doubling is not
// allowed), P split.

const dealerColumns = 10

var hardTable = map[int]string{
	5:  "HHHHHHHHHH",
	6:  "HHHHHHHHHH",
	7:  "HHHHHHHHHH",
	8:  "HHHHHHHHHH",
	9:  "HDDDDHHHHH",
	10: "DDDDDDDDHH",
	11: "DDDDDDDDDD",
	12: "HHSSSHHHHH",
	13: "SSSSSHHHHH",
	14: "SSSSSHHHHH",
	15: "SSSSSHHHHH",
	16: "SSSSSHHHHH",
	17: "SSSSSSSSSS",
	18: "SSSSSSSSSS",
	19: "SSSSSSSSSS",
	20: "SSSSSSSSSS",
	21: "SSSSSSSSSS",
}

var softTable = map[int]string{
	13: "HHHDDHHHHH", // A,2
	14: "HHHDDHHHHH", // A,3
	15: "HHDDDHHHHH", // A,4
	16: "HHDDDHHHHH", // A,5
	17: "HDDDDHHHHH", // A,6
	18: "SDDDDSSHHH", // A,7
	19: "SSSSSSSSSS", // A,8
	20: "SSSSSSSSSS", // A,9
	21: "SSSSSSSSSS", // A,10
}

// pairTable is keyed by card value; J, Q and K share the 10 row and an Ace
// pair is keyed 11.
var pairTable = map[int]string{
	11: "PPPPPPPPPP",
	2:  "PPPPPPHHHH",
	3:  "PPPPPPHHHH",
	4:  "HHHPPHHHHH",
	5:  "DDDDDDDDHH",
	6:  "PPPPPHHHHH",
	7:  "PPPPPPHHHH",
	8:  "PPPPPPPPPP",
	9:  "PPPPPSPPSS",
	10: "SSSSSSSSSS",
}

// lookup returns the chart cell for row/dealer, defaulting to hit.
func lookup(table map[int]string, row, dealer int) byte {
	cells, ok := table[row]
	if !ok || dealer < 2 || dealer > 11 || len(cells) != dealerColumns {
		return 'H'
	}
	return cells[dealer-2]
}
