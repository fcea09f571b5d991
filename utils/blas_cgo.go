//go:build cgo && openblas
// +build cgo,openblas

package utils

/*
#cgo LDFLAGS: -lopenblas -lm -lpthread
#include <cblas.h>
*/
import "C"

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

// Building with -tags openblas routes gonum dense kernels through OpenBLAS,
// which helps the preconditioner factorization on larger meshes.
func init() {
	blas64.Use(netblas.Implementation{})
	fmt.Println("Using netlib BLAS bindings")
}
