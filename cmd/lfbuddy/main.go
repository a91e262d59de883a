// Command lfbuddy inspects and exercises the lock-free buddy page allocator.
package main

func main() {
	execute()
}
