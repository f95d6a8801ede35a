package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"question-difficulty/internal/common"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// question templates per difficulty level; %s is replaced by a topic
var templates = map[int][]string{
	1: {
		"Multiple choice: which of these is an example of %s? a) yes b) no",
		"True or false: %s is covered in chapter one",
		"Multiple choice: select the definition of %s",
		"Fill in the blank: %s is ____",
	},
	2: {
		"Short answer: define %s in your own words",
		"Give an example of %s and explain it briefly",
		"Short answer: list the key properties of %s",
		"Describe how %s works in a short paragraph",
	},
	3: {
		"Essay: critically evaluate the role of %s",
		"Write an essay analysing the consequences of %s",
		"Essay question: compare competing theories of %s",
		"Discuss in depth how %s shaped modern thinking",
	},
}

var topics = []string{
	"photosynthesis", "inflation", "the industrial revolution", "plate tectonics",
	"democracy", "natural selection", "supply and demand", "the water cycle",
	"cellular respiration", "globalisation", "the renaissance", "climate change",
	"entropy", "colonialism", "machine learning", "the cold war",
	"osmosis", "probability", "urbanisation", "the french revolution",
}

func main() {
	var (
		output = flag.String("output", common.DefaultDatasetPath, "Output file (.csv or .xlsx)")
		rows   = flag.Int("rows", 300, "Number of questions to generate")
		seed   = flag.Int64("seed", common.DefaultSplitSeed, "Random seed")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *rows < 1 {
		log.Fatal().Int("rows", *rows).Msg("rows must be positive")
	}

	records := generate(rand.New(rand.NewSource(*seed)), *rows)

	var err error
	switch strings.ToLower(filepath.Ext(*output)) {
	case ".xlsx":
		err = writeXLSX(*output, records)
	default:
		err = writeCSV(*output, records)
	}
	if err != nil {
		log.Fatal().Err(err).Str("output", *output).Msg("Failed to write dataset")
	}

	fmt.Printf("Generated %d labeled questions in %s\n", len(records)-1, *output)
}

// generate returns a header row followed by rows cycling through the levels
func generate(rng *rand.Rand, n int) [][]string {
	records := [][]string{{common.DefaultTextColumn, common.DefaultLabelColumn}}
	for i := 0; i < n; i++ {
		level := i%3 + 1
		options := templates[level]
		text := fmt.Sprintf(options[rng.Intn(len(options))], topics[rng.Intn(len(topics))])
		records = append(records, []string{text, strconv.Itoa(level)})
	}
	return records
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return f.Close()
}

func writeXLSX(path string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
