package dataset

// GenerateSequences converts a (samples × features) matrix into overlapping
// windows for sequence-shaped models. Each sequence holds sequenceLength
// consecutive rows; its target is targetColumn of the row immediately after
// the window.
func GenerateSequences(data [][]float64, sequenceLength, targetColumn int) (sequences [][][]float64, targets []float64) {
	if sequenceLength <= 0 || len(data) <= sequenceLength {
		return nil, nil
	}

	for i := 0; i+sequenceLength < len(data); i++ {
		window := make([][]float64, sequenceLength)
		for j := 0; j < sequenceLength; j++ {
			row := make([]float64, len(data[i+j]))
			copy(row, data[i+j])
			window[j] = row
		}
		sequences = append(sequences, window)
		targets = append(targets, data[i+sequenceLength][targetColumn])
	}
	return sequences, targets
}
