package hilbertcluster_test

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/cohenw/hilbertcluster"
	"github.com/cohenw/hilbertcluster/point"
)

func Example() {
	// Three tight groups of 2-D points with 10-bit coordinates.
	rng := rand.New(rand.NewSource(1))
	var points []point.Point
	for _, center := range []uint32{100, 500, 900} {
		for i := 0; i < 20; i++ {
			points = append(points, point.Point{
				center + uint32(rng.Intn(5)),
				center + uint32(rng.Intn(5)),
			})
		}
	}

	hc, err := hilbertcluster.Optimize(10).
		OutlierSize(3).
		MaxTrials(20).
		Seed(42).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	partition, _, err := hc.Cluster(context.Background(), points)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("clusters:", partition.Len())
	// Output: clusters: 3
}
