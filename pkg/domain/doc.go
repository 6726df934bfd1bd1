// Package domain contains the library entities: catalog items, the users who
// borrow them, and the loans that record each borrowing. The types carry no
// persistence or transport concerns so every layer can share them.
package domain
